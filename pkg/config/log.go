package config

import (
	"fmt"
	"slices"
	"strings"
)

// LogLevels lists the accepted values of LogConfig.Level and of the observer sink levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

type LogConfig struct {
	Level string `koanf:"level"`
}

// String returns a string representation of the log configuration.
func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	return b.String()
}

// Validate accepts an empty level, which logs at info.
func (c *LogConfig) Validate() error {
	return ValidateLevel("log level", c.Level)
}

// ValidateLevel reports an error naming field if level is set to an unknown value.
func ValidateLevel(field, level string) error {
	if level == "" || slices.Contains(LogLevels, level) {
		return nil
	}
	return fmt.Errorf("invalid %s %q, expected one of %s", field, level, strings.Join(LogLevels, ", "))
}
