package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/identity"
)

// loggingMiddleware writes one slog line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware enforces bearer token authentication. Public endpoints
// (health, register, login, invitation links) bypass enforcement, but a
// valid token on a public path still attaches the user so handlers can
// tell an invitee with an account from an anonymous visitor.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		required := IsAuthRequired(r.URL.Path)

		token := extractBearerToken(r)
		if token == "" {
			if required {
				api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.deps.Tokens.Verify(token)
		if err != nil {
			if !required {
				next.ServeHTTP(w, r)
				return
			}
			if errors.Is(err, identity.ErrTokenExpired) {
				api.WriteUnauthorized(w, api.ReasonTokenExpired, "token has expired")
				return
			}
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "invalid token")
			return
		}

		user, err := s.deps.UserRepo.Get(r.Context(), userID)
		if err != nil {
			if !required {
				next.ServeHTTP(w, r)
				return
			}
			api.WriteUnauthorized(w, api.ReasonUnauthenticated, "token user not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(api.WithUser(r.Context(), user)))
	})
}

// requireAdmin rejects callers without the admin role. It runs after
// authMiddleware, so the user is already attached on protected paths.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := api.UserFromContext(r.Context())
		if caller == nil || !caller.IsAdmin() {
			api.WriteForbidden(w, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// RateLimitConfig holds the limiter knobs for one endpoint.
type RateLimitConfig struct {
	Window time.Duration
	Burst  int
}

// windowLimiter counts requests per key in fixed windows. Stale slots are
// overwritten on the next hit rather than swept, which keeps the map bounded
// by the number of distinct clients inside a window.
type windowLimiter struct {
	mu     sync.Mutex
	slots  map[string]*windowSlot
	burst  int
	window time.Duration
}

type windowSlot struct {
	count   int
	resetAt time.Time
}

func newWindowLimiter(window time.Duration, burst int) *windowLimiter {
	return &windowLimiter{
		slots:  make(map[string]*windowSlot),
		burst:  burst,
		window: window,
	}
}

func (l *windowLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	slot := l.slots[key]
	if slot == nil || now.After(slot.resetAt) {
		l.slots[key] = &windowSlot{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if slot.count >= l.burst {
		return false
	}
	slot.count++
	return true
}

// rateLimitMiddleware throttles the configured paths, keyed by client IP as
// resolved through the trusted proxy list.
func (s *Server) rateLimitMiddleware(config map[string]RateLimitConfig) func(next http.Handler) http.Handler {
	limiters := make(map[string]*windowLimiter, len(config))
	for path, cfg := range config {
		limiters[path] = newWindowLimiter(cfg.Window, cfg.Burst)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for path, limiter := range limiters {
				if r.URL.Path != path && !strings.HasPrefix(r.URL.Path, path+"/") {
					continue
				}
				clientIP := s.trustedProxies.GetClientIPString(r)
				if !limiter.allow(clientIP) {
					s.logger.Warn("rate limit exceeded", "path", path, "client_ip", clientIP)
					w.Header().Set("Retry-After", "60")
					api.WriteTooManyRequests(w, "too many requests, please try again later")
					return
				}
				break
			}

			next.ServeHTTP(w, r)
		})
	}
}
