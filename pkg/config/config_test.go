package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_StorageConfig_Validate(t *testing.T) {
	tests := []struct {
		name         string
		cfg          StorageConfig
		expectedType string
		expectedErr  string
	}{
		{name: "empty type selects memory", cfg: StorageConfig{}, expectedType: StorageInMemory},
		{
			name:         "document ignores redis settings",
			cfg:          StorageConfig{Type: StorageDocument, Database: DatabaseConfig{URL: "postgres://db/catalog", Timeout: time.Second}},
			expectedType: StorageDocument,
		},
		{
			name:        "document requires postgres url",
			cfg:         StorageConfig{Type: StorageDocument, Database: DatabaseConfig{URL: "mysql://db", Timeout: time.Second}},
			expectedErr: "database URL must start with 'postgres://'",
		},
		{
			name:        "keyvalue requires address",
			cfg:         StorageConfig{Type: StorageKeyValue},
			expectedErr: "redis address is not configured",
		},
		{
			name:        "negative ttl",
			cfg:         StorageConfig{Type: StorageKeyValue, Redis: RedisConfig{Addr: "localhost:6379", DialTimeout: time.Second, TTL: -time.Second}},
			expectedErr: "invalid redis key ttl",
		},
		{
			name:        "unknown type",
			cfg:         StorageConfig{Type: "column"},
			expectedErr: `unknown storage type "column"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			err := tt.cfg.Validate()
			// then
			if tt.expectedErr != "" {
				assert.ErrorContains(t, err, tt.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedType, tt.cfg.Type)
		})
	}
}

func Test_MaskURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{url: "", expected: "<not configured>"},
		{url: "postgres://user:p@ss@db:5432/catalog", expected: "postgres://****@db:5432/catalog"},
		{url: "postgres://db:5432/catalog", expected: "postgres://db:5432/catalog"},
		{url: "not a url", expected: "****"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskURL(tt.url))
		})
	}
}

func Test_Validate_OptionalSections(t *testing.T) {
	tests := []struct {
		name        string
		validate    func() error
		expectedErr string
	}{
		{name: "metrics disabled", validate: (&MetricsConfig{}).Validate},
		{name: "metrics path", validate: (&MetricsConfig{Enabled: true, Addr: ":9100", Path: "metrics"}).Validate, expectedErr: "metrics path must start with '/'"},
		{name: "telemetry disabled", validate: (&TelemetryConfig{}).Validate},
		{name: "telemetry endpoint", validate: (&TelemetryConfig{Enabled: true, ServiceName: "catalog"}).Validate, expectedErr: "OTel endpoint is not configured"},
		{name: "pprof address", validate: (&PProfConfig{Enabled: true}).Validate, expectedErr: "pprof is enabled but address is not configured"},
		{name: "pprof malformed address", validate: (&PProfConfig{Enabled: true, Addr: "6060"}).Validate, expectedErr: "invalid pprof address"},
		{name: "pprof disabled", validate: (&PProfConfig{Addr: "6060"}).Validate},
		{name: "log level empty", validate: (&LogConfig{}).Validate},
		{name: "log level known", validate: (&LogConfig{Level: "warn"}).Validate},
		{name: "log level unknown", validate: (&LogConfig{Level: "trace"}).Validate, expectedErr: `invalid log level "trace"`},
		{name: "shutdown timeout", validate: (&ShutdownConfig{}).Validate, expectedErr: "shutdown timeout must be greater than 0"},
		{name: "grpc interval", validate: (&GrpcServerConfig{Port: "9090"}).Validate, expectedErr: "gRPC health check interval must be greater than 0"},
		{name: "breaker rate", validate: (&CircuitBreakerConfig{ConsecutiveFailures: 1, ErrorRatePercent: 101, OpenTimeout: time.Second}).Validate, expectedErr: "between 0 and 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			err := tt.validate()
			// then
			if tt.expectedErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.expectedErr)
		})
	}
}
