package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/campushq/sessiond/middleware/bearerauth"
	"github.com/campushq/sessiond/services/auth"
	"github.com/campushq/sessiond/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         userView  `json:"user"`
}

type userView struct {
	ID            uint     `json:"id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	InstitutionID uint     `json:"institutionId"`
	Permissions   []string `json:"permissions"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	SessionID    string    `json:"sessionId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Login authenticates credentials and creates a session. If the session store
// is down the login still succeeds with a token-only response: no sessionId,
// no refreshToken, no server-side revocation until the store recovers. That
// degradation is logged, never surfaced.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	user, err := h.auth.Authenticate(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrAccountDisabled):
			return echo.NewHTTPError(http.StatusForbidden, "Account is disabled")
		default:
			h.logger.Error("login failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
		}
	}

	identity := h.auth.Identity(user)
	device := session.ParseDeviceInfo(c.RealIP(), c.Request().UserAgent())

	var sessionID, refreshToken string
	created, err := h.sessions.CreateSession(c.Request().Context(), identity, device, req.Remember)
	if err != nil {
		h.logger.Warn("session subsystem degraded during login, issuing token-only auth",
			zap.Uint("user_id", user.ID),
			zap.Error(err))
	} else {
		sessionID = created.SessionID
		refreshToken = created.RefreshToken
	}

	accessToken, expiresAt, err := h.tokens.GenerateAccessToken(identity, sessionID)
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
	}

	return c.JSON(http.StatusOK, loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		ExpiresAt:    expiresAt,
		User: userView{
			ID:            user.ID,
			Email:         user.Email,
			Name:          user.Name,
			Role:          user.Role,
			InstitutionID: user.InstitutionID,
			Permissions:   identity.Permissions,
		},
	})
}

// Logout blacklists the presented access token and destroys the session. Both
// writes are best-effort: the user-facing response never fails, but incomplete
// revocation is logged as a residual-risk event.
func (h *Handler) Logout(c echo.Context) error {
	authCtx := bearerauth.GetAuthContext(c)
	ctx := c.Request().Context()

	if err := h.revocation.BlacklistToken(ctx, authCtx.RawToken); err != nil {
		h.logger.Error("logout: token blacklisting failed, token remains valid until expiry",
			zap.Uint("user_id", authCtx.UserID),
			zap.String("jti", authCtx.TokenJTI),
			zap.Error(err))
	}

	if authCtx.SessionID != "" {
		if _, err := h.sessions.DestroySession(ctx, authCtx.SessionID); err != nil {
			h.logger.Error("logout: session destruction failed",
				zap.Uint("user_id", authCtx.UserID),
				zap.String("session_id", authCtx.SessionID),
				zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// LogoutAll terminates every session of the calling user and blacklists the
// presented token.
func (h *Handler) LogoutAll(c echo.Context) error {
	authCtx := bearerauth.GetAuthContext(c)
	ctx := c.Request().Context()

	if err := h.revocation.BlacklistToken(ctx, authCtx.RawToken); err != nil {
		h.logger.Error("logout-all: token blacklisting failed",
			zap.Uint("user_id", authCtx.UserID),
			zap.Error(err))
	}

	removed, err := h.sessions.DestroyAllUserSessions(ctx, authCtx.UserID)
	if err != nil {
		h.logger.Error("logout-all: bulk termination failed",
			zap.Uint("user_id", authCtx.UserID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, map[string]int{"removedCount": removed})
}

// Refresh exchanges a refresh token for a new access token, rotating the
// refresh token. Why a given token is invalid is deliberately not revealed.
func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Refresh token is required")
	}

	result, err := h.sessions.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
		}
		h.logger.Error("refresh failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, refreshResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		ExpiresAt:    result.ExpiresAt,
	})
}
