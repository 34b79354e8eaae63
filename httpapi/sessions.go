package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/campushq/sessiond/middleware/bearerauth"
	"github.com/campushq/sessiond/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type sessionView struct {
	SessionID        string             `json:"sessionId"`
	DeviceInfo       session.DeviceInfo `json:"deviceInfo"`
	CreatedAt        time.Time          `json:"createdAt"`
	LastSeenAt       time.Time          `json:"lastSeenAt"`
	ExpiresAt        time.Time          `json:"expiresAt"`
	IsCurrentSession bool               `json:"isCurrentSession"`
}

// ListMySessions renders the caller's active devices.
func (h *Handler) ListMySessions(c echo.Context) error {
	authCtx := bearerauth.GetAuthContext(c)

	records, err := h.sessions.GetUserSessions(c.Request().Context(), authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list user sessions",
			zap.Uint("user_id", authCtx.UserID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	views := make([]sessionView, 0, len(records))
	for _, record := range records {
		views = append(views, sessionView{
			SessionID:        record.SessionID,
			DeviceInfo:       record.DeviceInfo,
			CreatedAt:        record.CreatedAt,
			LastSeenAt:       record.LastSeenAt,
			ExpiresAt:        record.ExpiresAt,
			IsCurrentSession: record.SessionID == authCtx.SessionID,
		})
	}

	return c.JSON(http.StatusOK, views)
}

// DestroySession terminates one session by id. Non-admins may only destroy
// their own; a session owned by someone else reports not-found rather than
// confirming it exists.
func (h *Handler) DestroySession(c echo.Context) error {
	authCtx := bearerauth.GetAuthContext(c)
	sessionID := c.Param("id")
	ctx := c.Request().Context()

	expectedUserID := authCtx.UserID
	if authCtx.IsAdmin() {
		expectedUserID = 0
	}

	if _, err := h.sessions.ValidateSession(ctx, sessionID, expectedUserID); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrSessionExpired),
			errors.Is(err, session.ErrSessionOwnershipMismatch):
			return echo.NewHTTPError(http.StatusNotFound, "Session not found")
		default:
			h.logger.Error("session lookup failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
		}
	}

	existed, err := h.sessions.DestroySession(ctx, sessionID)
	if err != nil {
		h.logger.Error("failed to destroy session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}
	if !existed {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Session terminated"})
}
