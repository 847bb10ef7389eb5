package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port    int           `koanf:"port"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"server"`
	Storage struct {
		Type string `koanf:"type"`
	} `koanf:"storage"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("port is not configured")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_LoadFile(t *testing.T) {
	// given
	path := writeFile(t, "server:\n  port: 8080\n  timeout: 5s\nstorage:\n  type: memory\n")
	t.Setenv("CFGTEST_STORAGE_TYPE", "keyvalue")
	// when
	cfg, err := LoadFile[*testConfig]("cfgtest", path)
	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "keyvalue", cfg.Storage.Type, "environment overrides the file")
}

func Test_LoadFile_MissingFile(t *testing.T) {
	// given
	t.Setenv("CFGTEST_SERVER_PORT", "9090")
	// when
	cfg, err := LoadFile[*testConfig]("cfgtest", filepath.Join(t.TempDir(), "absent.yaml"))
	// then
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func Test_LoadFile_ValidationFails(t *testing.T) {
	// given
	path := writeFile(t, "storage:\n  type: memory\n")
	// when
	_, err := LoadFile[*testConfig]("cfgtest", path)
	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func Test_KeyTransformer(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "nested key", key: "CATALOG_STORAGE_REDIS_ADDR", expected: "storage.redis.addr"},
		{name: "top level key", key: "CATALOG_LOG", expected: "log"},
		{name: "foreign prefix kept", key: "OTHER_LOG_LEVEL", expected: "other.log.level"},
	}
	transform := KeyTransformer("CATALOG_")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			got := transform(tt.key)
			// then
			assert.Equal(t, tt.expected, got)
		})
	}
}
