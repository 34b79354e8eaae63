package revocation

import (
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/store"
	"go.uber.org/fx"
)

func ProvideRevocationService(st store.Store, tokenSvc *tokens.Service, logger *logging.Service) *Service {
	return NewService(st, tokenSvc, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideRevocationService),
)
