package session

import (
	"context"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/store"
	"go.uber.org/fx"
)

func ProvideSessionManager(st store.Store, tokenSvc *tokens.Service, cfg *config.Config, logger *logging.Service) *Manager {
	return NewManager(st, tokenSvc, cfg, logger)
}

func StartCleanupWorker(lc fx.Lifecycle, cfg *config.Config, manager *Manager) {
	if cfg.Session.CleanupInterval <= 0 {
		return
	}

	workerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			manager.StartCleanupWorker(workerCtx, cfg.Session.CleanupInterval)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Module("session",
	fx.Provide(ProvideSessionManager),
	fx.Invoke(StartCleanupWorker),
)
