package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// onlineWindow bounds how recent lastSeenAt must be for a user to count as
// online in Stats.
const onlineWindow = 5 * time.Minute

// Manager owns the session lifecycle. It is stateless; all shared state lives
// in the Store, so any number of Manager instances can run concurrently.
type Manager struct {
	store  store.Store
	tokens *tokens.Service
	config *config.Config
	logger *logging.Service
}

func NewManager(st store.Store, tokenSvc *tokens.Service, cfg *config.Config, logger *logging.Service) *Manager {
	return &Manager{
		store:  st,
		tokens: tokenSvc,
		config: cfg,
		logger: logger,
	}
}

// CreateSession writes a fresh session record, the refresh-token mapping, and
// the per-user index entry. Store failures propagate so the login endpoint can
// distinguish "session subsystem degraded" from authentication failure.
func (m *Manager) CreateSession(ctx context.Context, identity tokens.Identity, device DeviceInfo, remember bool) (*CreatedSession, error) {
	sessionID := uuid.New().String()

	refreshTokenID, err := m.generateRefreshTokenID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	lifetime := m.config.Session.Lifetime
	if remember {
		lifetime = m.config.Session.RememberLifetime
	}

	now := time.Now()
	record := Session{
		SessionID:      sessionID,
		UserID:         identity.UserID,
		Email:          identity.Email,
		Name:           identity.Name,
		Role:           identity.Role,
		InstitutionID:  identity.InstitutionID,
		Permissions:    identity.Permissions,
		DeviceInfo:     device,
		CreatedAt:      now,
		LastSeenAt:     now,
		ExpiresAt:      now.Add(lifetime),
		RefreshTokenID: refreshTokenID,
		Remember:       remember,
	}

	if err := m.writeSession(ctx, &record, lifetime); err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, refreshKey(refreshTokenID), sessionID, lifetime); err != nil {
		return nil, err
	}

	// The index TTL is only a backstop; stale members are pruned lazily by
	// GetUserSessions and DestroyAllUserSessions.
	if err := m.store.SAdd(ctx, userSessionsKey(identity.UserID), sessionID, m.config.Session.RememberLifetime); err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("session created",
			zap.String("session_id", sessionID),
			zap.Uint("user_id", identity.UserID),
			zap.Bool("remember", remember),
			zap.Time("expires_at", record.ExpiresAt))
	}

	return &CreatedSession{
		SessionID:    sessionID,
		RefreshToken: refreshTokenID,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

// ValidateSession is on the hot path of every authenticated request: one store
// read, no credential re-verification. Expiry is enforced from the stored
// timestamp, the store TTL is only a backstop. Pass expectedUserID 0 to skip
// the ownership check.
func (m *Manager) ValidateSession(ctx context.Context, sessionID string, expectedUserID uint) (*Session, error) {
	record, err := m.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if record.ExpiredAt(time.Now()) {
		m.removeSession(ctx, record)
		return nil, ErrSessionExpired
	}

	if expectedUserID != 0 && record.UserID != expectedUserID {
		if m.logger != nil {
			m.logger.Warn("session ownership mismatch",
				zap.String("session_id", sessionID),
				zap.Uint("session_user_id", record.UserID),
				zap.Uint("expected_user_id", expectedUserID))
		}
		return nil, ErrSessionOwnershipMismatch
	}

	m.touchAsync(*record)

	return record, nil
}

// Refresh rotates the refresh token. The GetDel on the old mapping is the
// linearization point: of N concurrent calls with the same token exactly one
// observes the sessionID, the rest get ErrInvalidRefreshToken. Never issued,
// already rotated, expired and session-destroyed tokens are indistinguishable
// to the caller.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	sessionID, err := m.store.GetDel(ctx, refreshKey(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	record, err := m.getSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	now := time.Now()
	if record.ExpiredAt(now) {
		m.removeSession(ctx, record)
		return nil, ErrInvalidRefreshToken
	}

	newRefreshTokenID, err := m.generateRefreshTokenID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	remaining := time.Until(record.ExpiresAt)
	if err := m.store.Set(ctx, refreshKey(newRefreshTokenID), sessionID, remaining); err != nil {
		return nil, err
	}

	record.RefreshTokenID = newRefreshTokenID
	record.LastSeenAt = now
	if err := m.writeSession(ctx, record, remaining); err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := m.tokens.GenerateAccessToken(record.Identity(), sessionID)
	if err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("refresh token rotated",
			zap.String("session_id", sessionID),
			zap.Uint("user_id", record.UserID))
	}

	return &RefreshResult{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: newRefreshTokenID,
		ExpiresAt:    expiresAt,
	}, nil
}

// DestroySession is idempotent: destroying an absent session reports
// existed=false and no error.
func (m *Manager) DestroySession(ctx context.Context, sessionID string) (bool, error) {
	record, err := m.getSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	m.removeSession(ctx, record)

	if m.logger != nil {
		m.logger.Info("session destroyed",
			zap.String("session_id", sessionID),
			zap.Uint("user_id", record.UserID))
	}

	return true, nil
}

// DestroyAllUserSessions is bulk best-effort: one failed deletion does not
// abort the rest. Returns the number of sessions actually removed.
func (m *Manager) DestroyAllUserSessions(ctx context.Context, userID uint) (int, error) {
	sessionIDs, err := m.store.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sessionID := range sessionIDs {
		existed, err := m.DestroySession(ctx, sessionID)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("failed to destroy session during bulk termination",
					zap.String("session_id", sessionID),
					zap.Uint("user_id", userID),
					zap.Error(err))
			}
			continue
		}
		if existed {
			removed++
		}
	}

	if err := m.store.Delete(ctx, userSessionsKey(userID)); err != nil && m.logger != nil {
		m.logger.Warn("failed to delete user session index",
			zap.Uint("user_id", userID), zap.Error(err))
	}

	if m.logger != nil {
		m.logger.Info("all user sessions destroyed",
			zap.Uint("user_id", userID),
			zap.Int("removed", removed))
	}

	return removed, nil
}

// GetUserSessions returns the user's live sessions, most recently seen first.
// Records found expired are removed on the way, consistent with lazy expiry
// everywhere else.
func (m *Manager) GetUserSessions(ctx context.Context, userID uint) ([]Session, error) {
	sessionIDs, err := m.store.SMembers(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sessions := make([]Session, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		record, err := m.getSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				if serr := m.store.SRem(ctx, userSessionsKey(userID), sessionID); serr != nil && m.logger != nil {
					m.logger.Warn("failed to prune stale session index entry",
						zap.String("session_id", sessionID), zap.Error(serr))
				}
				continue
			}
			return nil, err
		}
		if record.ExpiredAt(now) {
			m.removeSession(ctx, record)
			continue
		}
		sessions = append(sessions, *record)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastSeenAt.After(sessions[j].LastSeenAt)
	})

	return sessions, nil
}

// ListAllSessions scans every session record. Administrative use only.
func (m *Manager) ListAllSessions(ctx context.Context) ([]Session, error) {
	keys, err := m.store.Keys(ctx, keyPrefixSession+"*")
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(keys))
	for _, key := range keys {
		raw, err := m.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		var record Session
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		sessions = append(sessions, record)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastSeenAt.After(sessions[j].LastSeenAt)
	})

	return sessions, nil
}

// Stats aggregates across the whole keyspace. O(N), dashboard use only.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	sessions, err := m.ListAllSessions(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	users := make(map[uint]struct{})
	online := make(map[uint]struct{})
	active := 0

	for _, s := range sessions {
		users[s.UserID] = struct{}{}
		if !s.ExpiredAt(now) {
			active++
			if now.Sub(s.LastSeenAt) <= onlineWindow {
				online[s.UserID] = struct{}{}
			}
		}
	}

	return &Stats{
		TotalSessions:  len(sessions),
		ActiveSessions: active,
		TotalUsers:     len(users),
		OnlineUsers:    len(online),
	}, nil
}

// CleanupExpired sweeps records whose stored expiry has passed. The store TTL
// usually gets there first; this catches TTL misconfiguration and clears the
// refresh mappings and index entries along the way.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	sessions, err := m.ListAllSessions(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for i := range sessions {
		if sessions[i].ExpiredAt(now) {
			m.removeSession(ctx, &sessions[i])
			removed++
		}
	}

	if m.logger != nil && removed > 0 {
		m.logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
	}

	return removed, nil
}

// StartCleanupWorker runs CleanupExpired on a ticker until ctx is cancelled.
func (m *Manager) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.CleanupExpired(ctx); err != nil && m.logger != nil {
					m.logger.Error("session cleanup worker failed", zap.Error(err))
				}
			}
		}
	}()

	if m.logger != nil {
		m.logger.Info("started session cleanup worker", zap.Duration("interval", interval))
	}
}

func (m *Manager) getSession(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := m.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var record Session
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		if m.logger != nil {
			m.logger.Error("corrupt session record",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, ErrSessionNotFound
	}

	return &record, nil
}

func (m *Manager) writeSession(ctx context.Context, record *Session, ttl time.Duration) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	return m.store.Set(ctx, sessionKey(record.SessionID), string(raw), ttl)
}

// removeSession deletes the record, its refresh mapping, and its index entry.
// Best-effort; failures are logged, not returned.
func (m *Manager) removeSession(ctx context.Context, record *Session) {
	if record.RefreshTokenID != "" {
		if err := m.store.Delete(ctx, refreshKey(record.RefreshTokenID)); err != nil && m.logger != nil {
			m.logger.Warn("failed to delete refresh token mapping",
				zap.String("session_id", record.SessionID), zap.Error(err))
		}
	}
	if err := m.store.Delete(ctx, sessionKey(record.SessionID)); err != nil && m.logger != nil {
		m.logger.Warn("failed to delete session record",
			zap.String("session_id", record.SessionID), zap.Error(err))
	}
	if err := m.store.SRem(ctx, userSessionsKey(record.UserID), record.SessionID); err != nil && m.logger != nil {
		m.logger.Warn("failed to remove session from user index",
			zap.String("session_id", record.SessionID), zap.Error(err))
	}
}

// touchAsync refreshes lastSeenAt off the request path. Losing an update is
// acceptable; a touch racing a destroy must not resurrect the record, so the
// write re-reads under the session's remaining TTL only if it still exists.
func (m *Manager) touchAsync(record Session) {
	go func() {
		ctx := context.Background()

		current, err := m.getSession(ctx, record.SessionID)
		if err != nil {
			return
		}

		current.LastSeenAt = time.Now()
		remaining := time.Until(current.ExpiresAt)
		if remaining <= 0 {
			return
		}

		if err := m.writeSession(ctx, current, remaining); err != nil && m.logger != nil {
			m.logger.Debug("failed to update session last seen",
				zap.String("session_id", record.SessionID), zap.Error(err))
		}
	}()
}

func (m *Manager) generateRefreshTokenID() (string, error) {
	length := m.config.Session.RefreshTokenLength
	if length <= 0 {
		length = 32
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
