package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)

	tests := []struct {
		name         string
		cfg          config.StorageConfig
		expectedType any
		expectedErr  string
	}{
		{name: "default", cfg: config.StorageConfig{}, expectedType: &InMemoryStore{}},
		{name: "memory", cfg: config.StorageConfig{Type: config.StorageInMemory}, expectedType: &InMemoryStore{}},
		{
			name: "keyvalue",
			cfg: config.StorageConfig{Type: config.StorageKeyValue, Redis: config.RedisConfig{
				Addr: mr.Addr(), DialTimeout: time.Second, KeyPrefix: "test:",
			}},
			expectedType: &RedisStore{},
		},
		{
			name: "keyvalue unreachable",
			cfg: config.StorageConfig{Type: config.StorageKeyValue, Redis: config.RedisConfig{
				Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond,
			}},
			expectedErr: "failed to ping redis",
		},
		{name: "unknown", cfg: config.StorageConfig{Type: "tape"}, expectedErr: `unknown storage type "tape"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			s, closeFn, err := New(context.Background(), tt.cfg, logger)
			// then
			if tt.expectedErr != "" {
				assert.ErrorContains(t, err, tt.expectedErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			t.Cleanup(closeFn)
			assert.IsType(t, tt.expectedType, s)
		})
	}
}
