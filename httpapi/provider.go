package httpapi

import (
	"github.com/campushq/sessiond/middleware/bearerauth"
	"github.com/campushq/sessiond/middleware/ratelimit"
	"github.com/campushq/sessiond/server"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/revocation"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/session"
	"go.uber.org/fx"
)

func RegisterRoutesFx(h *Handler, srv *server.Server, tokenSvc *tokens.Service, revocationSvc *revocation.Service, sessions *session.Manager, limiterStore ratelimit.Store, logger *logging.Service) {
	requireBearer := bearerauth.RequireBearer(tokenSvc, revocationSvc, sessions, logger)
	h.RegisterRoutes(srv.Echo(), requireBearer, limiterStore)
}

var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutesFx),
)
