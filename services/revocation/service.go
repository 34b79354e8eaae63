package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/store"
	"go.uber.org/zap"
)

const keyPrefixBlacklist = "blacklist:"

// Service maintains the access-token blacklist. Entries carry a TTL equal to
// the token's remaining lifetime, so the set self-prunes without a cleanup
// job.
type Service struct {
	store  store.Store
	tokens *tokens.Service
	logger *logging.Service
}

func NewService(st store.Store, tokenSvc *tokens.Service, logger *logging.Service) *Service {
	return &Service{
		store:  st,
		tokens: tokenSvc,
		logger: logger,
	}
}

// BlacklistToken revokes a raw access token as received from the client. The
// token is decoded without signature verification: a token that cannot verify
// could never authenticate, and one already past its expiry needs no entry.
func (s *Service) BlacklistToken(ctx context.Context, accessToken string) error {
	jti, expiresAt, err := s.tokens.DecodeUnverified(accessToken)
	if err != nil {
		if errors.Is(err, tokens.ErrMalformedToken) {
			return nil
		}
		return err
	}

	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return nil
	}

	if err := s.store.Set(ctx, keyPrefixBlacklist+jti, "1", remaining); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to blacklist access token",
				zap.String("jti", jti),
				zap.Error(err))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("access token blacklisted",
			zap.String("jti", jti),
			zap.Duration("remaining", remaining))
	}

	return nil
}

// IsTokenRevoked reports whether a token id is on the blacklist. Store errors
// propagate; the caller decides the failure mode and the auth middleware fails
// closed.
func (s *Service) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.store.Exists(ctx, keyPrefixBlacklist+jti)
}
