package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/campushq/sessiond/services/tokens"
)

var (
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionExpired           = errors.New("session has expired")
	ErrSessionOwnershipMismatch = errors.New("session does not belong to user")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
)

const (
	keyPrefixSession      = "session:"
	keyPrefixUserSessions = "user_sessions:"
	keyPrefixRefresh      = "refresh:"
)

// Session is one server-side record per logged-in device. Identity fields are
// snapshotted at login and never re-fetched; a role change takes effect on the
// next login.
type Session struct {
	SessionID      string     `json:"session_id"`
	UserID         uint       `json:"user_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	InstitutionID  uint       `json:"institution_id"`
	Permissions    []string   `json:"permissions"`
	DeviceInfo     DeviceInfo `json:"device_info"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RefreshTokenID string     `json:"refresh_token_id"`
	Remember       bool       `json:"remember"`
}

func (s *Session) Identity() tokens.Identity {
	return tokens.Identity{
		UserID:        s.UserID,
		Email:         s.Email,
		Name:          s.Name,
		Role:          s.Role,
		InstitutionID: s.InstitutionID,
		Permissions:   s.Permissions,
	}
}

func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type DeviceInfo struct {
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
}

type CreatedSession struct {
	SessionID    string
	RefreshToken string
	ExpiresAt    time.Time
}

type RefreshResult struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Stats struct {
	TotalSessions  int `json:"totalSessions"`
	ActiveSessions int `json:"activeSessions"`
	TotalUsers     int `json:"totalUsers"`
	OnlineUsers    int `json:"onlineUsers"`
}

func sessionKey(sessionID string) string {
	return keyPrefixSession + sessionID
}

func userSessionsKey(userID uint) string {
	return keyPrefixUserSessions + formatUint(userID)
}

func refreshKey(refreshTokenID string) string {
	return keyPrefixRefresh + refreshTokenID
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

