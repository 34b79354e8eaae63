package auth

import (
	"errors"
	"fmt"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDisabled       = errors.New("account is disabled")
	ErrPasswordHashingFailed = errors.New("failed to hash password")
)

type Service struct {
	config *config.Config
	db     *gorm.DB
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
	}
}

func (s *Service) FindUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		if s.logger != nil {
			s.logger.Error("user lookup failed", zap.Error(err))
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return &user, nil
}

// Authenticate verifies credentials and the enabled flag. A missing user and
// a wrong password are deliberately the same error.
func (s *Service) Authenticate(email, password string) (*User, error) {
	user, err := s.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		if s.logger != nil {
			s.logger.Warn("authentication failed - password mismatch",
				zap.Uint("user_id", user.ID))
		}
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		if s.logger != nil {
			s.logger.Warn("authentication rejected - account disabled",
				zap.Uint("user_id", user.ID))
		}
		return nil, ErrAccountDisabled
	}

	return user, nil
}

func (s *Service) Identity(user *User) tokens.Identity {
	return tokens.Identity{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		InstitutionID: user.InstitutionID,
		Permissions:   user.PermissionList(),
	}
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("password hashing failed", zap.Error(err))
		}
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
