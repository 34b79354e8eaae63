package auth

import (
	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideAuthService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(cfg, db, logger)
}

// SeedAdminUser creates the configured bootstrap admin if no user with that
// email exists yet.
func SeedAdminUser(cfg *config.Config, svc *Service, db *gorm.DB, logger *logging.Service) error {
	if !cfg.Auth.SeedAdmin || cfg.Auth.SeedAdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&User{}).Where("email = ?", cfg.Auth.SeedAdminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := svc.HashPassword(cfg.Auth.SeedAdminPassword)
	if err != nil {
		return err
	}

	admin := User{
		Email:        cfg.Auth.SeedAdminEmail,
		Name:         "Administrator",
		Role:         "admin",
		PasswordHash: hash,
		Enabled:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if logger != nil {
		logger.Info("seeded bootstrap admin user", zap.String("email", admin.Email))
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
	fx.Invoke(SeedAdminUser),
)
