// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/config"
	"github.com/mepad/mepad-server/internal/dashboard"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

var ErrMissingDep = errors.New("missing required dependency")

// Deps holds all server dependencies.
type Deps struct {
	// Required: repositories
	UserRepo    identity.UserRepo
	MeetingRepo meetings.Repo
	InviteRepo  invites.Repo
	TaskRepo    tasks.Repo

	// Required: auth primitives
	UserAuth *identity.UserAuth
	Tokens   *identity.TokenIssuer

	// Optional: invitation service. Built from the repos when nil.
	InviteService *invites.Service
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg            *config.Config
	httpServer     *http.Server
	logger         *slog.Logger
	deps           *Deps
	trustedProxies *TrustedProxies

	authHandler      *api.AuthHandler
	meetingsHandler  *meetings.Handler
	invitesHandler   *invites.Handler
	tasksHandler     *tasks.Handler
	dashboardHandler *dashboard.Handler
}

// New creates a new Server with the given configuration.
// Returns an error if required dependencies are missing.
func New(cfg *config.Config, logger *slog.Logger, deps *Deps) (*Server, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}

	if deps.InviteService == nil {
		deps.InviteService = invites.NewService(deps.InviteRepo, deps.MeetingRepo, logger)
	}

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		deps:           deps,
		trustedProxies: NewTrustedProxies(cfg.Server.TrustedProxies),

		authHandler:      api.NewAuthHandler(deps.UserRepo, deps.UserAuth, deps.Tokens, deps.InviteService, logger),
		meetingsHandler:  meetings.NewHandler(deps.MeetingRepo, logger),
		invitesHandler:   invites.NewHandler(deps.InviteRepo, deps.MeetingRepo, deps.InviteService, cfg.Auth.InvitationTTL(), logger),
		tasksHandler:     tasks.NewHandler(deps.TaskRepo, deps.MeetingRepo, deps.UserRepo, logger),
		dashboardHandler: dashboard.NewHandler(deps.MeetingRepo, deps.TaskRepo, logger),
	}

	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"external_origin", s.cfg.ExternalOrigin,
		"tls_mode", s.cfg.TLS.Mode,
	)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()

	case "static", "selfsigned":
		tlsManager := NewTLSManager(&s.cfg.TLS, s.logger)
		tlsConfig, err := tlsManager.GetTLSConfig(extractHostname(s.cfg.ExternalOrigin))
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}

		s.httpServer.TLSConfig = tlsConfig
		// Certificates come from TLSConfig; ListenAndServeTLS with empty
		// paths uses them.
		return s.httpServer.ListenAndServeTLS("", "")

	default:
		return fmt.Errorf("%w: %s", ErrInvalidTLSMode, s.cfg.TLS.Mode)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// extractHostname extracts the hostname (no scheme, no port) from an
// external origin URL. Used for self-signed certificate generation.
func extractHostname(externalOrigin string) string {
	host := externalOrigin
	if after, ok := strings.CutPrefix(host, "https://"); ok {
		host = after
	} else if after, ok := strings.CutPrefix(host, "http://"); ok {
		host = after
	}
	if len(host) > 0 && host[len(host)-1] == '/' {
		host = host[:len(host)-1]
	}
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
		if host[i] == ']' {
			// IPv6 address like [::1]:8080
			break
		}
	}
	return host
}

// validateDeps checks that all required dependencies are provided.
func validateDeps(deps *Deps) error {
	if deps == nil {
		return errors.New("deps is nil")
	}
	if deps.UserRepo == nil {
		return fmt.Errorf("%w: UserRepo", ErrMissingDep)
	}
	if deps.MeetingRepo == nil {
		return fmt.Errorf("%w: MeetingRepo", ErrMissingDep)
	}
	if deps.InviteRepo == nil {
		return fmt.Errorf("%w: InviteRepo", ErrMissingDep)
	}
	if deps.TaskRepo == nil {
		return fmt.Errorf("%w: TaskRepo", ErrMissingDep)
	}
	if deps.UserAuth == nil {
		return fmt.Errorf("%w: UserAuth", ErrMissingDep)
	}
	if deps.Tokens == nil {
		return fmt.Errorf("%w: Tokens", ErrMissingDep)
	}
	return nil
}
