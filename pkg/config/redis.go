package config

import (
	"fmt"
	"strings"
	"time"
)

type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	PoolSize    int           `koanf:"poolsize"`
	DialTimeout time.Duration `koanf:"dialtimeout"`
	KeyPrefix   string        `koanf:"keyprefix"`
	// TTL is the expiration of product keys, zero keeps them forever.
	TTL time.Duration `koanf:"ttl"`
}

// String returns a string representation of the Redis configuration.
func (c *RedisConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Redis ---\n")
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	if c.Password != "" {
		b.WriteString("  password: ****\n")
	}
	b.WriteString(fmt.Sprintf("  db: %d\n", c.DB))
	b.WriteString(fmt.Sprintf("  poolsize: %d\n", c.PoolSize))
	b.WriteString(fmt.Sprintf("  dialtimeout: %s\n", c.DialTimeout))
	b.WriteString(fmt.Sprintf("  keyprefix: %s\n", c.KeyPrefix))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	return b.String()
}

func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address is not configured")
	}
	if c.DB < 0 {
		return fmt.Errorf("invalid redis database index: %d", c.DB)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("invalid redis pool size: %d", c.PoolSize)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout is not configured")
	}
	if c.TTL < 0 {
		return fmt.Errorf("invalid redis key ttl: %s", c.TTL)
	}
	return nil
}
