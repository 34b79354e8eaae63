package httpapi

import (
	"github.com/campushq/sessiond/config"
	"github.com/campushq/sessiond/services/auth"
	"github.com/campushq/sessiond/services/logging"
	"github.com/campushq/sessiond/services/revocation"
	"github.com/campushq/sessiond/services/tokens"
	"github.com/campushq/sessiond/session"
)

type Handler struct {
	config     *config.Config
	auth       *auth.Service
	sessions   *session.Manager
	tokens     *tokens.Service
	revocation *revocation.Service
	logger     *logging.Service
}

func NewHandler(cfg *config.Config, authSvc *auth.Service, sessions *session.Manager, tokenSvc *tokens.Service, revocationSvc *revocation.Service, logger *logging.Service) *Handler {
	return &Handler{
		config:     cfg,
		auth:       authSvc,
		sessions:   sessions,
		tokens:     tokenSvc,
		revocation: revocationSvc,
		logger:     logger,
	}
}
