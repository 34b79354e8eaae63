package httpapi

import (
	"github.com/campushq/sessiond/middleware/bearerauth"
	"github.com/campushq/sessiond/middleware/ratelimit"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires the session boundary onto the server. Login carries a
// per-IP failure limiter; everything else behind /auth and /admin requires a
// bearer token that passes both the blacklist and session gates.
func (h *Handler) RegisterRoutes(e *echo.Echo, requireBearer echo.MiddlewareFunc, limiterStore ratelimit.Store) {
	api := e.Group("/api")

	authGroup := api.Group("/auth")

	loginHandlers := []echo.MiddlewareFunc{}
	if h.config.RateLimit.Enabled {
		loginHandlers = append(loginHandlers, ratelimit.Middleware(&ratelimit.Config{
			Store:         limiterStore,
			Rate:          h.config.RateLimit.Rate,
			Period:        h.config.RateLimit.Period,
			CountFailures: true,
		}))
	}

	authGroup.POST("/login", h.Login, loginHandlers...)
	authGroup.POST("/refresh", h.Refresh)

	authGroup.POST("/logout", h.Logout, requireBearer)
	authGroup.POST("/logout-all", h.LogoutAll, requireBearer)
	authGroup.GET("/sessions", h.ListMySessions, requireBearer)
	authGroup.DELETE("/sessions/:id", h.DestroySession, requireBearer)

	adminGroup := api.Group("/admin", requireBearer, bearerauth.RequireAdmin())
	adminGroup.GET("/sessions", h.AdminListAllSessions)
	adminGroup.GET("/sessions/stats", h.AdminStats)
	adminGroup.DELETE("/users/:id/sessions", h.AdminTerminateUserSessions)
	adminGroup.POST("/sessions/cleanup", h.AdminCleanupExpired)
}
