package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/middleware/bearerauth"
	"github.com/campushq/sessiond/middleware/ratelimit"
	"github.com/campushq/sessiond/services/auth"
	"github.com/campushq/sessiond/services/revocation"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/session"
	"github.com/campushq/sessiond/store"
	"github.com/campushq/sessiond/testutils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testStack struct {
	echo     *echo.Echo
	config   *config.Config
	db       *gorm.DB
	auth     *auth.Service
	sessions *session.Manager
	tokens   *tokens.Service
	store    *store.MemoryStore
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	cfg := testutils.GetTestConfig()
	cfg.RateLimit.Enabled = false

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auth.User{}))

	st := store.NewMemoryStore()
	tokenSvc := tokens.NewService(cfg, nil)
	authSvc := auth.NewService(cfg, db, nil)
	sessions := session.NewManager(st, tokenSvc, cfg, nil)
	revocationSvc := revocation.NewService(st, tokenSvc, nil)

	handler := NewHandler(cfg, authSvc, sessions, tokenSvc, revocationSvc, nil)

	e := echo.New()
	requireBearer := bearerauth.RequireBearer(tokenSvc, revocationSvc, sessions, nil)
	handler.RegisterRoutes(e, requireBearer, ratelimit.NewMemoryStore())

	return &testStack{
		echo:     e,
		config:   cfg,
		db:       db,
		auth:     authSvc,
		sessions: sessions,
		tokens:   tokenSvc,
		store:    st,
	}
}

func (s *testStack) seedUser(t *testing.T, email, password, role string) *auth.User {
	t.Helper()

	hash, err := s.auth.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		Email:         email,
		Name:          "Seeded User",
		Role:          role,
		InstitutionID: 1,
		PasswordHash:  hash,
		Enabled:       true,
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func (s *testStack) request(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testStack) loginAs(t *testing.T, email, password string) loginResponse {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := s.request(http.MethodPost, "/api/auth/login", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")

	t.Run("valid credentials", func(t *testing.T) {
		resp := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.NotEmpty(t, resp.SessionID)
		assert.True(t, resp.ExpiresAt.After(time.Now()))
		assert.Equal(t, testutils.TestUsers.Teacher.Email, resp.User.Email)
		assert.Equal(t, "teacher", resp.User.Role)
		assert.Contains(t, resp.User.Permissions, "grades:write")
	})

	t.Run("wrong password", func(t *testing.T) {
		body := fmt.Sprintf(`{"email":%q,"password":"wrong"}`, testutils.TestUsers.Teacher.Email)
		rec := stack.request(http.MethodPost, "/api/auth/login", body, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email or password")
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/auth/login",
			`{"email":"nobody@campus.edu","password":"whatever"}`, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid email or password")
	})

	t.Run("disabled account", func(t *testing.T) {
		user := stack.seedUser(t, "disabled@campus.edu", "Password123", "student")
		require.NoError(t, stack.db.Model(user).Update("enabled", false).Error)

		rec := stack.request(http.MethodPost, "/api/auth/login",
			`{"email":"disabled@campus.edu","password":"Password123"}`, "")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/auth/login", `{"email":"a@b.c"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("access token is accepted by protected routes", func(t *testing.T) {
		resp := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

		rec := stack.request(http.MethodGet, "/api/auth/sessions", "", resp.AccessToken)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLogin_StoreDownDegradesToTokenOnly(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")

	// Swap the session manager for one backed by a dead store.
	cfg := stack.config
	tokenSvc := stack.tokens
	broken := &testutils.MockStore{}
	broken.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(store.ErrStoreUnavailable)

	handler := NewHandler(cfg, stack.auth,
		session.NewManager(broken, tokenSvc, cfg, nil),
		tokenSvc,
		revocation.NewService(broken, tokenSvc, nil),
		nil)

	e := echo.New()
	e.POST("/api/auth/login", handler.Login)

	body := fmt.Sprintf(`{"email":%q,"password":%q}`,
		testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Empty(t, resp.SessionID)
	assert.Empty(t, resp.RefreshToken)
}

func TestRefresh(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")
	login := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

	t.Run("rotation", func(t *testing.T) {
		body := fmt.Sprintf(`{"refreshToken":%q}`, login.RefreshToken)
		rec := stack.request(http.MethodPost, "/api/auth/refresh", body, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp refreshResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, login.SessionID, resp.SessionID)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

		t.Run("old token rejected after rotation", func(t *testing.T) {
			rec := stack.request(http.MethodPost, "/api/auth/refresh", body, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/auth/refresh", `{"refreshToken":"bogus"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid refresh token")
	})

	t.Run("missing token", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/auth/refresh", `{}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")
	login := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

	rec := stack.request(http.MethodPost, "/api/auth/logout", "", login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out")

	t.Run("token no longer works", func(t *testing.T) {
		rec := stack.request(http.MethodGet, "/api/auth/sessions", "", login.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token no longer works", func(t *testing.T) {
		body := fmt.Sprintf(`{"refreshToken":%q}`, login.RefreshToken)
		rec := stack.request(http.MethodPost, "/api/auth/refresh", body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unauthenticated logout rejected", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/auth/logout", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutAll(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")

	first := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)
	second := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

	rec := stack.request(http.MethodPost, "/api/auth/logout-all", "", first.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["removedCount"])

	t.Run("second device is logged out too", func(t *testing.T) {
		rec := stack.request(http.MethodGet, "/api/auth/sessions", "", second.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListMySessions(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")

	first := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)
	second := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

	rec := stack.request(http.MethodGet, "/api/auth/sessions", "", second.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)

	current := 0
	for _, v := range views {
		if v.IsCurrentSession {
			current++
			assert.Equal(t, second.SessionID, v.SessionID)
		}
	}
	assert.Equal(t, 1, current)
	_ = first
}

func TestDestroySession(t *testing.T) {
	stack := newTestStack(t)
	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")
	stack.seedUser(t, "other@campus.edu", "Password123", "student")

	t.Run("own session", func(t *testing.T) {
		keep := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)
		kill := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

		rec := stack.request(http.MethodDelete, "/api/auth/sessions/"+kill.SessionID, "", keep.AccessToken)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = stack.request(http.MethodGet, "/api/auth/sessions", "", kill.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("someone else's session reports not found", func(t *testing.T) {
		mine := stack.loginAs(t, "other@campus.edu", "Password123")
		theirs := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)

		rec := stack.request(http.MethodDelete, "/api/auth/sessions/"+theirs.SessionID, "", mine.AccessToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		// Target session must be untouched.
		_, err := stack.sessions.ValidateSession(context.Background(), theirs.SessionID, 0)
		assert.NoError(t, err)
	})

	t.Run("unknown session id", func(t *testing.T) {
		mine := stack.loginAs(t, "other@campus.edu", "Password123")

		rec := stack.request(http.MethodDelete, "/api/auth/sessions/does-not-exist", "", mine.AccessToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	stack := newTestStack(t)
	teacher := stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")
	stack.seedUser(t, testutils.TestUsers.Admin.Email, testutils.TestUsers.Admin.Password, "admin")

	teacherLogin := stack.loginAs(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password)
	adminLogin := stack.loginAs(t, testutils.TestUsers.Admin.Email, testutils.TestUsers.Admin.Password)

	t.Run("non-admin forbidden", func(t *testing.T) {
		rec := stack.request(http.MethodGet, "/api/admin/sessions", "", teacherLogin.AccessToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list all sessions", func(t *testing.T) {
		rec := stack.request(http.MethodGet, "/api/admin/sessions", "", adminLogin.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var records []session.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		assert.Len(t, records, 2)
	})

	t.Run("stats", func(t *testing.T) {
		rec := stack.request(http.MethodGet, "/api/admin/sessions/stats", "", adminLogin.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats session.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.TotalSessions)
		assert.Equal(t, 2, stats.TotalUsers)
	})

	t.Run("terminate a user's sessions", func(t *testing.T) {
		rec := stack.request(http.MethodDelete,
			fmt.Sprintf("/api/admin/users/%d/sessions", teacher.ID), "", adminLogin.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp["removedCount"])

		rec = stack.request(http.MethodGet, "/api/auth/sessions", "", teacherLogin.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid user id", func(t *testing.T) {
		rec := stack.request(http.MethodDelete, "/api/admin/users/abc/sessions", "", adminLogin.AccessToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cleanup", func(t *testing.T) {
		rec := stack.request(http.MethodPost, "/api/admin/sessions/cleanup", "", adminLogin.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp["removedCount"])
	})
}

func TestLoginRateLimit(t *testing.T) {
	stack := newTestStack(t)
	stack.config.RateLimit.Enabled = true
	stack.config.RateLimit.Rate = 2
	stack.config.RateLimit.Period = time.Minute

	// Re-register with the limiter enabled.
	cfg := stack.config
	handler := NewHandler(cfg, stack.auth, stack.sessions, stack.tokens,
		revocation.NewService(stack.store, stack.tokens, nil), nil)
	e := echo.New()
	requireBearer := bearerauth.RequireBearer(stack.tokens, revocation.NewService(stack.store, stack.tokens, nil), stack.sessions, nil)
	handler.RegisterRoutes(e, requireBearer, ratelimit.NewMemoryStore())
	stack.echo = e

	stack.seedUser(t, testutils.TestUsers.Teacher.Email, testutils.TestUsers.Teacher.Password, "teacher")

	badLogin := func() *httptest.ResponseRecorder {
		return stack.request(http.MethodPost, "/api/auth/login",
			fmt.Sprintf(`{"email":%q,"password":"wrong"}`, testutils.TestUsers.Teacher.Email), "")
	}

	assert.Equal(t, http.StatusUnauthorized, badLogin().Code)
	assert.Equal(t, http.StatusUnauthorized, badLogin().Code)
	assert.Equal(t, http.StatusTooManyRequests, badLogin().Code)

	t.Run("successful logins do not consume the budget", func(t *testing.T) {
		fresh := newTestStack(t)
		fresh.config.RateLimit.Enabled = true
		fresh.config.RateLimit.Rate = 3
		handler := NewHandler(fresh.config, fresh.auth, fresh.sessions, fresh.tokens,
			revocation.NewService(fresh.store, fresh.tokens, nil), nil)
		e := echo.New()
		rb := bearerauth.RequireBearer(fresh.tokens, revocation.NewService(fresh.store, fresh.tokens, nil), fresh.sessions, nil)
		handler.RegisterRoutes(e, rb, ratelimit.NewMemoryStore())
		fresh.echo = e
		fresh.seedUser(t, "ok@campus.edu", "Password123", "student")

		for i := 0; i < 5; i++ {
			rec := fresh.request(http.MethodPost, "/api/auth/login",
				`{"email":"ok@campus.edu","password":"Password123"}`, "")
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
