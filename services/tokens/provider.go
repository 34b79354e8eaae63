package tokens

import (
	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"go.uber.org/fx"
)

func NewTokenService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger)
}

var Options = fx.Options(
	fx.Provide(NewTokenService),
)
