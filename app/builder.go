package app

import (
	"fmt"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/database"
	"github.com/campushq/sessiond/httpapi"
	"github.com/campushq/sessiond/middleware/ratelimit"
	"github.com/campushq/sessiond/server"
	"github.com/campushq/sessiond/services/auth"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/revocation"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/session"
	"github.com/campushq/sessiond/store"
	"go.uber.org/fx"
)

type Builder struct {
	config    *config.Config
	fxOptions []fx.Option
}

func NewApp() *Builder {
	return &Builder{}
}

func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithFxOptions(opts ...fx.Option) *Builder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *Builder) Build() (*App, error) {
	if b.config == nil {
		cfg := &config.Config{}
		if err := config.LoadConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		b.config = cfg
	}

	logger, err := logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fx.Supply(database.WithModels(&auth.User{})),
		fx.NopLogger,

		database.Module,
		store.Module,
		tokens.Options,
		auth.Module,
		revocation.Module,
		session.Module,
		ratelimit.Module,
		server.NewProvider(),
		httpapi.Module,
	}

	options = append(options, b.fxOptions...)

	options = append(options, fx.Invoke(func(srv *server.Server) {
		app.server = srv
	}))

	app.fx = fx.New(options...)

	return app, nil
}
