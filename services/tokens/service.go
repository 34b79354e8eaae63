package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid access token")
	ErrExpiredToken     = errors.New("access token has expired")
	ErrMalformedToken   = errors.New("malformed access token")
	ErrInvalidSignature = errors.New("invalid access token signature")
)

// Identity is the snapshot of authorization facts embedded in every access
// token and session record at login time. It is not re-fetched per request.
type Identity struct {
	UserID        uint     `json:"user_id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	InstitutionID uint     `json:"institution_id"`
	Permissions   []string `json:"permissions"`
}

type Claims struct {
	UserID        uint     `json:"user_id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	InstitutionID uint     `json:"institution_id"`
	Permissions   []string `json:"permissions"`
	SessionID     string   `json:"session_id"`
	JTI           string   `json:"jti"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:        c.UserID,
		Email:         c.Email,
		Name:          c.Name,
		Role:          c.Role,
		InstitutionID: c.InstitutionID,
		Permissions:   c.Permissions,
	}
}

type Service struct {
	config *config.Config
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func (s *Service) AccessExpiry() time.Duration {
	return s.config.JWT.AccessExpiry
}

func (s *Service) GenerateAccessToken(identity Identity, sessionID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.JWT.AccessExpiry)
	jti := uuid.New().String()

	claims := Claims{
		UserID:        identity.UserID,
		Email:         identity.Email,
		Name:          identity.Name,
		Role:          identity.Role,
		InstitutionID: identity.InstitutionID,
		Permissions:   identity.Permissions,
		SessionID:     sessionID,
		JTI:           jti,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   fmt.Sprintf("%d", identity.UserID),
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign access token", zap.Error(err))
		}
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(s.config.JWT.SecretKey), nil
	})

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("access token validation failed", zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// DecodeUnverified extracts the token id and expiry without checking the
// signature. Revocation only needs these two facts: a token that fails
// verification could never authenticate, so it does not need blacklisting.
func (s *Service) DecodeUnverified(tokenString string) (jti string, expiresAt time.Time, err error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", time.Time{}, ErrMalformedToken
	}

	if claims.JTI == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrMalformedToken
	}

	return claims.JTI, claims.ExpiresAt.Time, nil
}
