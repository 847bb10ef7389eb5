// Package config holds the configuration of the catalog service.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Storage        config.StorageConfig        `koanf:"storage"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	GRPC           config.GrpcServerConfig     `koanf:"grpc"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Metrics        config.MetricsConfig        `koanf:"metrics"`
	NATS           config.NATSConfig           `koanf:"nats"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Observers      ObserversConfig             `koanf:"observers"`
}

// ObserversConfig selects the event sinks attached to the catalog.
// The metrics sink follows Metrics.Enabled.
type ObserversConfig struct {
	Console     SinkConfig `koanf:"console"`
	File        SinkConfig `koanf:"file"`
	Diagnostics bool       `koanf:"diagnostics"`
	// Publisher publishes events to NATS; it requires the nats and circuitbreaker sections.
	Publisher bool `koanf:"publisher"`
}

type SinkConfig struct {
	Enabled bool   `koanf:"enabled"`
	Level   string `koanf:"level"`
	Path    string `koanf:"path"`
}

func (c *ObserversConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Observers ---\n")
	b.WriteString(fmt.Sprintf("  console.enabled: %t\n", c.Console.Enabled))
	b.WriteString(fmt.Sprintf("  console.level: %s\n", c.Console.Level))
	b.WriteString(fmt.Sprintf("  file.enabled: %t\n", c.File.Enabled))
	b.WriteString(fmt.Sprintf("  file.level: %s\n", c.File.Level))
	b.WriteString(fmt.Sprintf("  file.path: %s\n", c.File.Path))
	b.WriteString(fmt.Sprintf("  diagnostics: %t\n", c.Diagnostics))
	b.WriteString(fmt.Sprintf("  publisher: %t\n", c.Publisher))
	return b.String()
}

func (c *ObserversConfig) Validate() error {
	if c.File.Enabled && c.File.Path == "" {
		return fmt.Errorf("file observer is enabled but path is not configured")
	}
	if err := config.ValidateLevel("console observer level", c.Console.Level); err != nil {
		return err
	}
	return config.ValidateLevel("file observer level", c.File.Level)
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Metrics.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Observers.String())
	if c.Observers.Publisher {
		b.WriteString(c.NATS.String())
		b.WriteString(c.CircuitBreaker.String())
	}
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid.
// The nats and circuitbreaker sections are only checked when the publisher is enabled.
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Storage,
		&c.Log,
		&c.PProf,
		&c.GRPC,
		&c.Shutdown,
		&c.Telemetry,
		&c.Metrics,
		&c.Observers,
	}
	if c.Observers.Publisher {
		validators = append(validators, &c.NATS, &c.CircuitBreaker)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
