package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/config"
)

// New opens the backend selected by cfg.Type. The returned function releases its connections.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (ProductStore, func(), error) {
	switch cfg.Type {
	case "", config.StorageInMemory:
		logger.Info("Using in-memory product store")
		return NewInMemoryStore(), func() {}, nil

	case config.StorageDocument:
		if cfg.Database.Migrate {
			if err := Migrate(cfg.Database.URL, logger); err != nil {
				return nil, nil, err
			}
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using PostgreSQL document store", "url", config.MaskURL(cfg.Database.URL))
		return NewPgStore(dbPool), dbPool.Close, nil

	case config.StorageKeyValue:
		r := cfg.Redis
		client, err := bootstrap.NewRedisClient(ctx, r.Addr, r.Password, r.DB, r.PoolSize, r.DialTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis key-value store", "addr", r.Addr, "prefix", r.KeyPrefix, "ttl", r.TTL)
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}
		return NewRedisStore(client, r.KeyPrefix, r.TTL), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
