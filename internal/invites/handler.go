package invites

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
)

// Handler serves the invitation endpoints.
type Handler struct {
	repo     Repo
	meetings meetings.Repo
	service  *Service
	ttl      time.Duration
	logger   *slog.Logger
}

// NewHandler creates a new invitation handler. A zero ttl falls back to
// DefaultTTL.
func NewHandler(repo Repo, meetingRepo meetings.Repo, service *Service, ttl time.Duration, logger *slog.Logger) *Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Handler{repo: repo, meetings: meetingRepo, service: service, ttl: ttl, logger: logger}
}

// ParticipantInput is one entry in the issue request.
type ParticipantInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IssueRequest is the request body for POST /api/meetings/{id}/invitations.
type IssueRequest struct {
	Participants []ParticipantInput `json:"participants"`
}

// AddedParticipant describes a participant actually added by an issue call,
// together with the invitation token for their response link.
type AddedParticipant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// HandleIssue handles POST /api/meetings/{id}/invitations. Creator-only.
// Each participant not already on the meeting is appended with status
// "invited" and gets a tokenized ledger row; existing participants are
// silently skipped. A ledger row that already exists for an email that is
// not on the participant list is a conflict.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())
	ctx := r.Context()

	meeting, err := h.meetings.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if meeting.CreatedBy != caller.ID {
		api.WriteForbidden(w, "not authorized to send invitations for this meeting")
		return
	}

	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if len(req.Participants) == 0 {
		api.WriteBadRequest(w, api.ReasonMissingField, "please provide participants to invite")
		return
	}

	for _, p := range req.Participants {
		if strings.TrimSpace(p.Name) == "" {
			api.WriteBadRequest(w, api.ReasonMissingField, "please add participant name")
			return
		}
		if !identity.ValidEmail(p.Email) {
			api.WriteBadRequest(w, api.ReasonInvalidField, "please add a valid email")
			return
		}
		if p.Role != "" && !meetings.ValidParticipantRole(p.Role) {
			api.WriteBadRequest(w, api.ReasonInvalidField, "invalid participant role")
			return
		}
	}

	added := make([]AddedParticipant, 0, len(req.Participants))
	for _, p := range req.Participants {
		if meeting.FindParticipant(p.Email) != nil {
			continue
		}

		role := p.Role
		if role == "" {
			role = meetings.RoleViewer
		}

		inv := &Invitation{
			MeetingID: meeting.ID,
			Email:     p.Email,
			ExpiresAt: time.Now().Add(h.ttl),
		}
		if err := h.repo.Create(ctx, inv); err != nil {
			if errors.Is(err, ErrDuplicate) {
				api.WriteConflict(w, "an invitation already exists for "+p.Email)
				return
			}
			h.logger.Error("failed to create invitation", "error", err)
			api.WriteInternalError(w, "failed to create invitation")
			return
		}

		meeting.Participants = append(meeting.Participants, meetings.Participant{
			Name:   p.Name,
			Email:  p.Email,
			Status: meetings.ParticipantInvited,
			Role:   role,
		})
		added = append(added, AddedParticipant{Name: p.Name, Email: p.Email, Token: inv.Token})
	}

	if len(added) > 0 {
		if err := h.meetings.Update(ctx, meeting); err != nil {
			h.logger.Error("failed to save meeting participants", "meeting_id", meeting.ID, "error", err)
			api.WriteInternalError(w, "failed to save participants")
			return
		}
	}

	h.logger.Info("invitations issued", "meeting_id", meeting.ID, "added", len(added))
	api.WriteData(w, http.StatusOK, map[string]any{"addedParticipants": added})
}

// ResolveResponse is the payload for GET /api/invite/{token}.
type ResolveResponse struct {
	Meeting    *meetings.Meeting `json:"meeting"`
	Invitation InvitationView    `json:"invitation"`
}

// InvitationView is the invitee-facing slice of a ledger row.
type InvitationView struct {
	Email     string `json:"email"`
	Status    Status `json:"status"`
	ExpiresAt string `json:"expiresAt"`
}

// HandleResolve handles GET /api/invite/{token}. Public. Returns the
// referenced meeting with participant emails and action point assignees
// redacted, joined with the invitation's own email/status/expiry.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := h.repo.GetByToken(ctx, chi.URLParam(r, "token"))
	if err != nil {
		api.WriteNotFound(w, "invalid invitation link")
		return
	}
	if inv.IsExpired() {
		api.WriteBadRequest(w, api.ReasonInvitationExpired, "invitation has expired")
		return
	}

	meeting, err := h.meetings.Get(ctx, inv.MeetingID)
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	api.WriteData(w, http.StatusOK, ResolveResponse{
		Meeting: meeting.Redacted(),
		Invitation: InvitationView{
			Email:     inv.Email,
			Status:    inv.Status,
			ExpiresAt: inv.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

// RespondRequest is the request body for PUT /api/invite/{token}/status.
type RespondRequest struct {
	Status Status `json:"status"`
}

// HandleRespond handles PUT /api/invite/{token}/status. Optional auth: an
// authenticated caller whose email matches the invitation gets no extra
// linking; membership is re-derived by email at read time.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Status != StatusAccepted && req.Status != StatusDeclined {
		api.WriteBadRequest(w, api.ReasonInvalidField, "please provide a valid status (accepted or declined)")
		return
	}

	inv, err := h.service.Respond(r.Context(), chi.URLParam(r, "token"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			api.WriteNotFound(w, "invalid invitation link")
		case errors.Is(err, ErrExpired):
			api.WriteBadRequest(w, api.ReasonInvitationExpired, "invitation has expired")
		case errors.Is(err, ErrAlreadyDecided):
			api.WriteConflict(w, "invitation has already been decided")
		default:
			h.logger.Error("failed to update invitation status", "error", err)
			api.WriteInternalError(w, "failed to update invitation status")
		}
		return
	}

	api.WriteData(w, http.StatusOK, map[string]any{
		"status":    inv.Status,
		"email":     inv.Email,
		"meetingId": inv.MeetingID,
	})
}

// HandleListForMeeting handles GET /api/meetings/{id}/invitations.
// Creator-only.
func (h *Handler) HandleListForMeeting(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())
	ctx := r.Context()

	meeting, err := h.meetings.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if meeting.CreatedBy != caller.ID {
		api.WriteForbidden(w, "not authorized to view invitations for this meeting")
		return
	}

	invitations, err := h.repo.ListByMeeting(ctx, meeting.ID)
	if err != nil {
		h.logger.Error("failed to list invitations", "meeting_id", meeting.ID, "error", err)
		api.WriteInternalError(w, "failed to list invitations")
		return
	}

	api.WriteList(w, http.StatusOK, invitations, len(invitations))
}
