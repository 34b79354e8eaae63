package testutils

import (
	"time"

	"github.com/campushq/sessiond/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "sessiond-test",
			URL:  "http://localhost:8080",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Store: config.StoreConfig{
			Backend: "memory",
			Timeout: time.Second,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!!",
			Issuer:       "sessiond-test",
			AccessExpiry: 15 * time.Minute,
		},
		Session: config.SessionConfig{
			Lifetime:           time.Hour,
			RememberLifetime:   7 * 24 * time.Hour,
			RefreshTokenLength: 32,
		},
		Auth: config.AuthConfig{
			BcryptCost: bcrypt.MinCost,
		},
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			Rate:    10,
			Period:  time.Minute,
		},
	}
}

var TestUsers = struct {
	Teacher struct {
		Email    string
		Name     string
		Role     string
		Password string
	}
	Admin struct {
		Email    string
		Name     string
		Role     string
		Password string
	}
}{
	Teacher: struct {
		Email    string
		Name     string
		Role     string
		Password string
	}{
		Email:    "teacher@campus.edu",
		Name:     "Test Teacher",
		Role:     "teacher",
		Password: "Password123",
	},
	Admin: struct {
		Email    string
		Name     string
		Role     string
		Password string
	}{
		Email:    "admin@campus.edu",
		Name:     "Test Admin",
		Role:     "admin",
		Password: "AdminPass123",
	},
}
