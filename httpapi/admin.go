package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *Handler) AdminListAllSessions(c echo.Context) error {
	records, err := h.sessions.ListAllSessions(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list all sessions", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, records)
}

func (h *Handler) AdminStats(c echo.Context) error {
	stats, err := h.sessions.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to compute session stats", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) AdminTerminateUserSessions(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user id")
	}

	removed, err := h.sessions.DestroyAllUserSessions(c.Request().Context(), uint(userID))
	if err != nil {
		h.logger.Error("failed to terminate user sessions",
			zap.Uint64("user_id", userID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, map[string]int{"removedCount": removed})
}

func (h *Handler) AdminCleanupExpired(c echo.Context) error {
	removed, err := h.sessions.CleanupExpired(c.Request().Context())
	if err != nil {
		h.logger.Error("session cleanup failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Session service unavailable")
	}

	return c.JSON(http.StatusOK, map[string]int{"removedCount": removed})
}
