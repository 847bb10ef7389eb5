package config

import (
	"fmt"
	"strings"
)

// Storage backends selectable with StorageConfig.Type.
const (
	StorageInMemory = "memory"
	StorageDocument = "document"
	StorageKeyValue = "keyvalue"
)

type StorageConfig struct {
	Type     string         `koanf:"type"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
}

// String returns a string representation of the storage configuration.
// Only the settings of the selected backend are included.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  type: %s\n", c.Type))
	switch c.Type {
	case StorageDocument:
		b.WriteString(c.Database.String())
	case StorageKeyValue:
		b.WriteString(c.Redis.String())
	}
	return b.String()
}

// Validate checks the storage type and the settings of the selected backend.
// An empty type selects the in-memory backend.
func (c *StorageConfig) Validate() error {
	if c.Type == "" {
		c.Type = StorageInMemory
	}
	switch c.Type {
	case StorageInMemory:
		return nil
	case StorageDocument:
		return c.Database.Validate()
	case StorageKeyValue:
		return c.Redis.Validate()
	default:
		return fmt.Errorf("unknown storage type %q, expected one of %s, %s, %s",
			c.Type, StorageInMemory, StorageDocument, StorageKeyValue)
	}
}
