package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mepad/mepad-server/internal/api"
)

// RouteGroup defines an endpoint group with its auth requirements.
type RouteGroup struct {
	Name         string
	PathPrefix   string
	RequiresAuth bool
}

// routeGroups defines all endpoint groups and their auth requirements.
// This table is the single source of truth for auth gating decisions.
var routeGroups = []RouteGroup{
	{Name: "api", PathPrefix: "/api", RequiresAuth: true},
}

// GetRouteGroups returns the route group definitions for testing.
func GetRouteGroups() []RouteGroup {
	return routeGroups
}

// publicExceptions are paths that don't require auth within otherwise
// protected groups. Invitation links must work before an account exists,
// so everything under /api/invite is public; a bearer token, when present,
// is still attached to the request.
var publicExceptions = []string{
	"/api/healthz",
	"/api/auth/register",
	"/api/auth/login",
	"/api/invite",
}

// IsAuthRequired checks if a given path requires authentication.
// This is used by the auth middleware to make gating decisions.
func IsAuthRequired(path string) bool {
	for _, exc := range publicExceptions {
		if pathMatchesPrefix(path, exc) {
			return false
		}
	}

	for _, rg := range routeGroups {
		if pathMatchesPrefix(path, rg.PathPrefix) {
			return rg.RequiresAuth
		}
	}

	// Default: require auth for unknown paths
	return true
}

// pathMatchesPrefix checks if path equals or is a subpath of prefix.
func pathMatchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix)] == '/'
	}
	return false
}

// setupRoutes creates the chi router with all endpoints mounted.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Global middleware stack (order matters for correct logging).
	// RequestID must come first so GetReqID works in loggingMiddleware;
	// Recoverer writes through the logging wrapper so the access log
	// captures the right status for panics.
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	// Rate limiting for the credential endpoints
	rl := s.cfg.Server.RateLimit
	rateLimits := map[string]RateLimitConfig{
		"/api/auth/login":    {Window: rl.Window(), Burst: rl.Burst},
		"/api/auth/register": {Window: rl.Window(), Burst: rl.Burst},
	}
	r.Use(s.rateLimitMiddleware(rateLimits))

	// Auth middleware for all routes (checks IsAuthRequired)
	r.Use(s.authMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", api.HealthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.authHandler.HandleRegister)
			r.Post("/login", s.authHandler.HandleLogin)
			r.Get("/me", s.authHandler.HandleMe)
			r.Delete("/users/{id}", s.authHandler.HandleDeleteUser)
		})

		r.Route("/meetings", func(r chi.Router) {
			r.Post("/", s.meetingsHandler.HandleCreate)
			r.Get("/", s.meetingsHandler.HandleList)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.meetingsHandler.HandleGet)
				r.Put("/", s.meetingsHandler.HandleUpdate)
				r.Delete("/", s.meetingsHandler.HandleDelete)

				r.Post("/invitations", s.invitesHandler.HandleIssue)
				r.Get("/invitations", s.invitesHandler.HandleListForMeeting)

				r.Post("/action-points", s.meetingsHandler.HandleAddActionPoint)
				r.Put("/action-points/{actionID}", s.meetingsHandler.HandleUpdateActionPoint)
				r.Delete("/action-points/{actionID}", s.meetingsHandler.HandleDeleteActionPoint)

				r.Get("/pain-points", s.meetingsHandler.HandleListPainPoints)
				r.With(s.requireAdmin).Post("/pain-points", s.meetingsHandler.HandleAddPainPoint)
				r.With(s.requireAdmin).Put("/pain-points/{pointID}", s.meetingsHandler.HandleUpdatePainPoint)

				// Tasks are created and listed in meeting scope
				r.Post("/tasks", s.tasksHandler.HandleCreate)
				r.Get("/tasks", s.tasksHandler.HandleListForMeeting)
			})
		})

		// Invitation links: public, consumed from email before login
		r.Route("/invite", func(r chi.Router) {
			r.Get("/{token}", s.invitesHandler.HandleResolve)
			r.Put("/{token}/status", s.invitesHandler.HandleRespond)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Put("/{id}", s.tasksHandler.HandleUpdate)
			r.Delete("/{id}", s.tasksHandler.HandleDelete)
		})

		r.Get("/dashboard", s.dashboardHandler.HandleDashboard)
	})

	return r
}
