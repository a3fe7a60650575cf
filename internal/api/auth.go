package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mepad/mepad-server/internal/identity"
)

// MinPasswordLength is the minimum accepted password length at registration.
const MinPasswordLength = 6

// InvitationAcceptor accepts all pending invitations for an email. Wired to
// the invitation service; declared here so the auth handler does not depend
// on the invites package.
type InvitationAcceptor interface {
	AcceptPendingForEmail(ctx context.Context, email string) (int, error)
}

// AuthHandler handles authentication and account endpoints.
type AuthHandler struct {
	repo        identity.UserRepo
	auth        *identity.UserAuth
	tokens      *identity.TokenIssuer
	invitations InvitationAcceptor
	logger      *slog.Logger
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(repo identity.UserRepo, auth *identity.UserAuth, tokens *identity.TokenIssuer, invitations InvitationAcceptor, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		repo:        repo,
		auth:        auth,
		tokens:      tokens,
		invitations: invitations,
		logger:      logger,
	}
}

// CredentialsRequest is the request body for register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the payload for successful register and login.
type AuthResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// HandleRegister handles POST /api/auth/register. Creating an account
// auto-accepts any pending invitations for the email so the new user
// immediately sees meetings they were invited to.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	if !identity.ValidEmail(req.Email) {
		WriteBadRequest(w, ReasonInvalidField, "please add a valid email")
		return
	}
	if len(req.Password) < MinPasswordLength {
		WriteBadRequest(w, ReasonInvalidField, "password must be at least 6 characters")
		return
	}

	ctx := r.Context()

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		WriteInternalError(w, "failed to register")
		return
	}

	user := &identity.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         identity.RoleParticipant,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			WriteConflict(w, "user already exists")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		WriteInternalError(w, "failed to register")
		return
	}

	if h.invitations != nil {
		if _, err := h.invitations.AcceptPendingForEmail(ctx, user.Email); err != nil {
			// The account exists; invitation acceptance is best-effort.
			h.logger.Warn("failed to accept pending invitations", "email", user.Email, "error", err)
		}
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		WriteInternalError(w, "failed to register")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	WriteData(w, http.StatusCreated, AuthResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}

// HandleLogin handles POST /api/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "email and password required")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), h.repo, req.Email, req.Password)
	if err != nil {
		WriteUnauthorized(w, ReasonInvalidCredentials, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		WriteInternalError(w, "failed to login")
		return
	}

	WriteData(w, http.StatusOK, AuthResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}

// HandleMe handles GET /api/auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	if caller == nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	WriteData(w, http.StatusOK, caller)
}

// HandleDeleteUser handles DELETE /api/auth/users/{id}. Admin-only; the
// last remaining admin cannot be deleted.
func (h *AuthHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller := UserFromContext(r.Context())
	ctx := r.Context()

	if !caller.IsAdmin() {
		WriteForbidden(w, "only admins can delete users")
		return
	}

	user, err := h.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		WriteNotFound(w, "user not found")
		return
	}

	if user.IsAdmin() {
		count, err := h.repo.CountByRole(ctx, identity.RoleAdmin)
		if err != nil {
			h.logger.Error("failed to count admins", "error", err)
			WriteInternalError(w, "failed to delete user")
			return
		}
		if count <= 1 {
			WriteConflict(w, "cannot delete the last admin user")
			return
		}
	}

	if err := h.repo.Delete(ctx, user.ID); err != nil {
		h.logger.Error("failed to delete user", "error", err)
		WriteInternalError(w, "failed to delete user")
		return
	}

	h.logger.Info("user deleted", "user_id", user.ID, "deleted_by", caller.ID)
	WriteData(w, http.StatusOK, struct{}{})
}
