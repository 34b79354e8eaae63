package bearerauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/revocation"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const authContextKey = "_auth_context"

// AuthContext is the authenticated-request value produced once per request by
// the middleware and read explicitly by handlers. Nothing else is attached to
// the request.
type AuthContext struct {
	UserID        uint
	Email         string
	Name          string
	Role          string
	InstitutionID uint
	Permissions   []string
	SessionID     string
	TokenJTI      string
	RawToken      string
}

func (a *AuthContext) IsAdmin() bool {
	return a.Role == "admin"
}

func (a *AuthContext) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// RequireBearer authenticates a request through both gates: the token must
// verify and be absent from the blacklist, and the session it references must
// still exist. A store failure denies access; "store down" never means "token
// valid".
func RequireBearer(tokenSvc *tokens.Service, revocationSvc *revocation.Service, sessions *session.Manager, logger *logging.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := extractBearer(c)
			if err != nil {
				return err
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				// Malformed vs bad-signature detail stays in the logs; the
				// response must not aid token-forgery probing.
				switch {
				case errors.Is(err, tokens.ErrExpiredToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
				default:
					if logger != nil {
						logger.Warn("rejected bearer token", zap.Error(err))
					}
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
				}
			}

			revoked, err := revocationSvc.IsTokenRevoked(c.Request().Context(), claims.JTI)
			if err != nil {
				if logger != nil {
					logger.Error("blacklist check failed, denying access", zap.Error(err))
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
			}
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has been revoked")
			}

			// Tokens minted while the store was down carry no session id.
			// They authenticate on signature and blacklist alone until they
			// expire; there is no session to validate or list.
			if claims.SessionID == "" {
				c.Set(authContextKey, &AuthContext{
					UserID:        claims.UserID,
					Email:         claims.Email,
					Name:          claims.Name,
					Role:          claims.Role,
					InstitutionID: claims.InstitutionID,
					Permissions:   claims.Permissions,
					TokenJTI:      claims.JTI,
					RawToken:      tokenString,
				})
				return next(c)
			}

			record, err := sessions.ValidateSession(c.Request().Context(), claims.SessionID, claims.UserID)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrSessionNotFound),
					errors.Is(err, session.ErrSessionExpired),
					errors.Is(err, session.ErrSessionOwnershipMismatch):
					return echo.NewHTTPError(http.StatusUnauthorized, "Session expired, please log in again")
				default:
					if logger != nil {
						logger.Error("session validation failed, denying access", zap.Error(err))
					}
					return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
				}
			}

			c.Set(authContextKey, &AuthContext{
				UserID:        record.UserID,
				Email:         record.Email,
				Name:          record.Name,
				Role:          record.Role,
				InstitutionID: record.InstitutionID,
				Permissions:   record.Permissions,
				SessionID:     record.SessionID,
				TokenJTI:      claims.JTI,
				RawToken:      tokenString,
			})

			return next(c)
		}
	}
}

// RequireAdmin stacks on RequireBearer.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := GetAuthContext(c)
			if auth == nil || !auth.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "Administrator access required")
			}
			return next(c)
		}
	}
}

func GetAuthContext(c echo.Context) *AuthContext {
	if auth, ok := c.Get(authContextKey).(*AuthContext); ok {
		return auth
	}
	return nil
}

func extractBearer(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Bearer token required")
	}

	return tokenString, nil
}
