package store

import (
	"context"
	"fmt"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideStore(cfg *config.Config, logger *logging.Service) (Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		if logger != nil {
			logger.Info("using in-memory session store")
		}
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Timeout:  cfg.Store.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: memory, redis)", cfg.Store.Backend)
	}
}

func SetupStoreLifecycle(lc fx.Lifecycle, s Store, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if rs, ok := s.(*RedisStore); ok {
				if err := rs.Ping(ctx); err != nil {
					// The service still boots; login degrades to token-only
					// auth until the store comes back.
					if logger != nil {
						logger.Warn("session store unreachable at startup", zap.Error(err))
					}
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Invoke(SetupStoreLifecycle),
)
