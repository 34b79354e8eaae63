package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"SESSIOND_APP_"`
	Server    ServerConfig    `envPrefix:"SESSIOND_SERVER_"`
	Log       LogConfig       `envPrefix:"SESSIOND_LOG_"`
	Database  DatabaseConfig  `envPrefix:"SESSIOND_DB_"`
	Store     StoreConfig     `envPrefix:"SESSIOND_STORE_"`
	JWT       JWTConfig       `envPrefix:"SESSIOND_JWT_"`
	Session   SessionConfig   `envPrefix:"SESSIOND_SESSION_"`
	Auth      AuthConfig      `envPrefix:"SESSIOND_AUTH_"`
	RateLimit RateLimitConfig `envPrefix:"SESSIOND_RATELIMIT_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"sessiond"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"sessiond.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

// StoreConfig selects the session store backend. "redis" is the intended
// production backend; "memory" keeps everything in-process.
type StoreConfig struct {
	Backend       string        `env:"BACKEND" envDefault:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"3s"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY,required"`
	Issuer       string        `env:"ISSUER" envDefault:"sessiond"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
}

type SessionConfig struct {
	Lifetime           time.Duration `env:"LIFETIME" envDefault:"1h"`
	RememberLifetime   time.Duration `env:"REMEMBER_LIFETIME" envDefault:"168h"`
	RefreshTokenLength int           `env:"REFRESH_TOKEN_LENGTH" envDefault:"32"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type AuthConfig struct {
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`
	SeedAdmin         bool   `env:"SEED_ADMIN" envDefault:"false"`
	SeedAdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@localhost"`
	SeedAdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:""`
}

type RateLimitConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"true"`
	Rate    int           `env:"RATE" envDefault:"10"`
	Period  time.Duration `env:"PERIOD" envDefault:"1m"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return env.Parse(cfg)
}
