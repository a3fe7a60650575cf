package meetings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mepad/mepad-server/internal/api"
)

// Handler serves the meeting aggregate endpoints.
type Handler struct {
	repo   Repo
	logger *slog.Logger
}

// NewHandler creates a new meeting handler.
func NewHandler(repo Repo, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// CreateRequest is the request body for POST /api/meetings.
type CreateRequest struct {
	Title        string        `json:"title"`
	Date         time.Time     `json:"date"`
	Venue        string        `json:"venue"`
	Summary      string        `json:"summary"`
	Participants []Participant `json:"participants"`
	ActionPoints []ActionPoint `json:"actionPoints"`
}

// HandleCreate handles POST /api/meetings.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	meeting := &Meeting{
		Title:        req.Title,
		Date:         req.Date,
		Venue:        req.Venue,
		Summary:      req.Summary,
		Participants: req.Participants,
		ActionPoints: req.ActionPoints,
		CreatedBy:    caller.ID,
	}
	normalizeParticipants(meeting.Participants)
	normalizeActionPoints(meeting.ActionPoints)

	if err := meeting.Validate(); err != nil {
		api.WriteBadRequest(w, api.ReasonMissingField, err.Error())
		return
	}

	if err := h.repo.Create(r.Context(), meeting); err != nil {
		h.logger.Error("failed to create meeting", "error", err)
		api.WriteInternalError(w, "failed to create meeting")
		return
	}

	h.logger.Info("meeting created", "meeting_id", meeting.ID, "created_by", caller.ID)
	api.WriteData(w, http.StatusCreated, meeting)
}

// HandleList handles GET /api/meetings. Returns the union of meetings the
// caller created and meetings where the caller's email appears among the
// participants (excluding their own, to avoid duplicates).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())
	ctx := r.Context()

	created, err := h.repo.ListByCreator(ctx, caller.ID)
	if err != nil {
		api.WriteInternalError(w, "failed to list meetings")
		return
	}
	participating, err := h.repo.ListByParticipantEmail(ctx, caller.Email, caller.ID)
	if err != nil {
		api.WriteInternalError(w, "failed to list meetings")
		return
	}

	result := make([]*Meeting, 0, len(created)+len(participating))
	result = append(result, created...)
	result = append(result, participating...)

	api.WriteList(w, http.StatusOK, result, len(result))
}

// HandleGet handles GET /api/meetings/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if !ResolveAccess(meeting, caller).CanView() {
		api.WriteForbidden(w, "not authorized to view this meeting")
		return
	}

	api.WriteData(w, http.StatusOK, meeting)
}

// UpdateRequest is the request body for PUT /api/meetings/{id}. Pointer
// fields distinguish "absent" from "set to zero".
type UpdateRequest struct {
	Title        *string        `json:"title"`
	Date         *time.Time     `json:"date"`
	Venue        *string        `json:"venue"`
	Summary      *string        `json:"summary"`
	Participants *[]Participant `json:"participants"`
	ActionPoints *[]ActionPoint `json:"actionPoints"`
	CreatedBy    *string        `json:"createdBy"`
}

// HandleUpdate handles PUT /api/meetings/{id}. The creator may update any
// field; a participant who is not the creator may only update actionPoints,
// other keys are silently dropped. CreatedBy is immutable: an attempt to
// change it is rejected outright.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	access := ResolveAccess(meeting, caller)
	if !access.IsCreator && !access.IsParticipant {
		api.WriteForbidden(w, "not authorized to update this meeting")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	if req.CreatedBy != nil && *req.CreatedBy != meeting.CreatedBy {
		api.WriteBadRequest(w, api.ReasonInvalidField, "createdBy cannot be changed")
		return
	}

	if req.ActionPoints != nil {
		meeting.ActionPoints = *req.ActionPoints
		normalizeActionPoints(meeting.ActionPoints)
	}

	if access.IsCreator {
		if req.Title != nil {
			meeting.Title = *req.Title
		}
		if req.Date != nil {
			meeting.Date = *req.Date
		}
		if req.Venue != nil {
			meeting.Venue = *req.Venue
		}
		if req.Summary != nil {
			meeting.Summary = *req.Summary
		}
		if req.Participants != nil {
			meeting.Participants = *req.Participants
			normalizeParticipants(meeting.Participants)
		}
	}

	if err := meeting.Validate(); err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to update meeting")
		return
	}

	api.WriteData(w, http.StatusOK, meeting)
}

// HandleDelete handles DELETE /api/meetings/{id}. Creator-only; embedded
// sub-entities vanish with the meeting. Invitations and tasks referencing
// the id are left orphaned.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if meeting.CreatedBy != caller.ID {
		api.WriteForbidden(w, "not authorized to delete this meeting")
		return
	}

	if err := h.repo.Delete(r.Context(), meeting.ID); err != nil {
		h.writeRepoError(w, err, "failed to delete meeting")
		return
	}

	h.logger.Info("meeting deleted", "meeting_id", meeting.ID, "deleted_by", caller.ID)
	api.WriteData(w, http.StatusOK, struct{}{})
}

// ActionPointRequest is the request body for action point mutations.
type ActionPointRequest struct {
	Description *string            `json:"description"`
	AssignedTo  *string            `json:"assignedTo"`
	DueDate     *time.Time         `json:"dueDate"`
	Status      *ActionPointStatus `json:"status"`
}

// HandleAddActionPoint handles POST /api/meetings/{id}/action-points.
// Creator or participant may add; a non-creator participant who omits
// assignedTo gets it defaulted to their own email.
func (h *Handler) HandleAddActionPoint(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	access := ResolveAccess(meeting, caller)
	if !access.CanEditActionPoints() {
		api.WriteForbidden(w, "not authorized to add action points to this meeting")
		return
	}

	var req ActionPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	ap := ActionPoint{ID: uuid.New().String(), Status: ActionPending}
	if req.Description != nil {
		ap.Description = *req.Description
	}
	if req.AssignedTo != nil {
		ap.AssignedTo = *req.AssignedTo
	}
	if req.DueDate != nil {
		ap.DueDate = *req.DueDate
	}
	if req.Status != nil {
		ap.Status = *req.Status
	}
	if access.IsParticipant && !access.IsCreator && ap.AssignedTo == "" {
		ap.AssignedTo = caller.Email
	}

	if err := validateActionPoint(&ap); err != nil {
		api.WriteBadRequest(w, api.ReasonMissingField, err.Error())
		return
	}

	now := time.Now()
	ap.CreatedAt = now
	ap.UpdatedAt = now
	meeting.ActionPoints = append(meeting.ActionPoints, ap)

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to add action point")
		return
	}

	api.WriteData(w, http.StatusCreated, meeting)
}

// HandleUpdateActionPoint handles PUT /api/meetings/{id}/action-points/{actionID}.
// Status changes are open to the creator and participants; any other field
// is creator-only.
func (h *Handler) HandleUpdateActionPoint(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	access := ResolveAccess(meeting, caller)
	if !access.CanEditActionPoints() {
		api.WriteForbidden(w, "not authorized to update this action point")
		return
	}

	ap := meeting.FindActionPoint(chi.URLParam(r, "actionID"))
	if ap == nil {
		api.WriteNotFound(w, "action point not found")
		return
	}

	var req ActionPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	touchesFullFields := req.Description != nil || req.AssignedTo != nil || req.DueDate != nil
	if touchesFullFields && !access.IsCreator {
		api.WriteForbidden(w, "only the meeting creator can edit action point fields")
		return
	}

	if req.Status != nil {
		if !ValidActionPointStatus(*req.Status) {
			api.WriteBadRequest(w, api.ReasonInvalidField, "invalid action point status")
			return
		}
		ap.Status = *req.Status
	}
	if req.Description != nil {
		ap.Description = *req.Description
	}
	if req.AssignedTo != nil {
		ap.AssignedTo = *req.AssignedTo
	}
	if req.DueDate != nil {
		ap.DueDate = *req.DueDate
	}
	ap.UpdatedAt = time.Now()

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to update action point")
		return
	}

	api.WriteData(w, http.StatusOK, ap)
}

// HandleDeleteActionPoint handles DELETE /api/meetings/{id}/action-points/{actionID}.
// Creator-only, like deleting the aggregate itself.
func (h *Handler) HandleDeleteActionPoint(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if meeting.CreatedBy != caller.ID {
		api.WriteForbidden(w, "only the meeting creator can delete action points")
		return
	}

	actionID := chi.URLParam(r, "actionID")
	idx := -1
	for i := range meeting.ActionPoints {
		if meeting.ActionPoints[i].ID == actionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		api.WriteNotFound(w, "action point not found")
		return
	}
	meeting.ActionPoints = append(meeting.ActionPoints[:idx], meeting.ActionPoints[idx+1:]...)

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to delete action point")
		return
	}

	api.WriteData(w, http.StatusOK, struct{}{})
}

// PainPointRequest is the request body for pain point mutations.
type PainPointRequest struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

// HandleAddPainPoint handles POST /api/meetings/{id}/pain-points.
// Admin-only, enforced at the route level; the handler itself only checks
// that the meeting exists.
func (h *Handler) HandleAddPainPoint(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	var req PainPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "please add a description")
		return
	}

	meeting.PainPoints = append(meeting.PainPoints, PainPoint{
		ID:          uuid.New().String(),
		Description: req.Description,
		AddedBy:     caller.ID,
		AddedAt:     time.Now(),
		Status:      PainOpen,
	})

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to add pain point")
		return
	}

	api.WriteData(w, http.StatusOK, meeting)
}

// HandleUpdatePainPoint handles PUT /api/meetings/{id}/pain-points/{pointID}.
// Admin-only, enforced at the route level.
func (h *Handler) HandleUpdatePainPoint(w http.ResponseWriter, r *http.Request) {
	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	pp := meeting.FindPainPoint(chi.URLParam(r, "pointID"))
	if pp == nil {
		api.WriteNotFound(w, "pain point not found")
		return
	}

	var req PainPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "please provide a status")
		return
	}
	pp.Status = req.Status

	if err := h.repo.Update(r.Context(), meeting); err != nil {
		h.writeRepoError(w, err, "failed to update pain point")
		return
	}

	api.WriteData(w, http.StatusOK, meeting)
}

// HandleListPainPoints handles GET /api/meetings/{id}/pain-points.
func (h *Handler) HandleListPainPoints(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	meeting, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	if !ResolveAccess(meeting, caller).CanView() {
		api.WriteForbidden(w, "not authorized to view this meeting")
		return
	}

	api.WriteList(w, http.StatusOK, meeting.PainPoints, len(meeting.PainPoints))
}

func (h *Handler) writeRepoError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrMeetingNotFound) {
		api.WriteNotFound(w, "meeting not found")
		return
	}
	h.logger.Error(msg, "error", err)
	api.WriteInternalError(w, msg)
}

func validateActionPoint(ap *ActionPoint) error {
	if ap.Description == "" {
		return errors.New("please add a description")
	}
	if ap.AssignedTo == "" {
		return errors.New("please specify who this is assigned to")
	}
	if ap.DueDate.IsZero() {
		return errors.New("please add a due date")
	}
	if !ValidActionPointStatus(ap.Status) {
		return errors.New("invalid action point status")
	}
	return nil
}

// normalizeParticipants fills defaults on embedded participants supplied by
// clients.
func normalizeParticipants(ps []Participant) {
	for i := range ps {
		if ps[i].Status == "" {
			ps[i].Status = ParticipantInvited
		}
		if ps[i].Role == "" {
			ps[i].Role = RoleViewer
		}
	}
}

// normalizeActionPoints fills ids and defaults on embedded action points
// supplied by clients.
func normalizeActionPoints(aps []ActionPoint) {
	now := time.Now()
	for i := range aps {
		if aps[i].ID == "" {
			aps[i].ID = uuid.New().String()
		}
		if aps[i].Status == "" {
			aps[i].Status = ActionPending
		}
		if aps[i].CreatedAt.IsZero() {
			aps[i].CreatedAt = now
		}
		aps[i].UpdatedAt = now
	}
}
