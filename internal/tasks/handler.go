package tasks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
)

// Handler serves the task endpoints.
type Handler struct {
	repo     Repo
	meetings meetings.Repo
	users    identity.UserRepo
	logger   *slog.Logger
}

// NewHandler creates a new task handler.
func NewHandler(repo Repo, meetingRepo meetings.Repo, users identity.UserRepo, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, meetings: meetingRepo, users: users, logger: logger}
}

// CreateRequest is the request body for POST /api/meetings/{id}/tasks.
type CreateRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Deadline        time.Time `json:"deadline"`
	AssignedToEmail string    `json:"assignedToEmail"`
	Priority        string    `json:"priority"`
}

// HandleCreate handles POST /api/meetings/{id}/tasks. Admin-only
// (enforced at the route policy level and re-checked here). The assignee
// must resolve to a user whose email appears among the meeting's
// participants.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())
	ctx := r.Context()

	if !caller.IsAdmin() {
		api.WriteForbidden(w, "only admins can create tasks")
		return
	}

	meeting, err := h.meetings.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "meeting not found")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	assignee, err := h.users.GetByEmail(ctx, req.AssignedToEmail)
	if err != nil {
		api.WriteNotFound(w, "user not found with provided email")
		return
	}

	if meeting.FindParticipant(assignee.Email) == nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, "user is not a participant in this meeting")
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	task := &Task{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		AssignedTo:  assignee.ID,
		MeetingID:   meeting.ID,
		Priority:    priority,
		Status:      StatusPending,
		CreatedBy:   caller.ID,
	}
	if err := task.Validate(); err != nil {
		api.WriteBadRequest(w, api.ReasonMissingField, err.Error())
		return
	}

	if err := h.repo.Create(ctx, task); err != nil {
		h.logger.Error("failed to create task", "error", err)
		api.WriteInternalError(w, "failed to create task")
		return
	}

	h.logger.Info("task created", "task_id", task.ID, "meeting_id", meeting.ID, "assigned_to", task.AssignedTo)
	api.WriteData(w, http.StatusCreated, task)
}

// HandleListForMeeting handles GET /api/meetings/{id}/tasks.
func (h *Handler) HandleListForMeeting(w http.ResponseWriter, r *http.Request) {
	result, err := h.repo.ListByMeeting(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("failed to list tasks", "error", err)
		api.WriteInternalError(w, "failed to list tasks")
		return
	}

	api.WriteList(w, http.StatusOK, result, len(result))
}

// UpdateRequest is the request body for PUT /api/tasks/{id}.
type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Priority    *string    `json:"priority"`
	Status      *Status    `json:"status"`
}

// HandleUpdate handles PUT /api/tasks/{id}. Allowed for the creator, the
// assignee, or an admin.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	task, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "task not found")
		return
	}

	if task.CreatedBy != caller.ID && task.AssignedTo != caller.ID && !caller.IsAdmin() {
		api.WriteForbidden(w, "not authorized to update this task")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Deadline != nil {
		task.Deadline = *req.Deadline
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if err := task.Validate(); err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	if err := h.repo.Update(r.Context(), task); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			api.WriteNotFound(w, "task not found")
			return
		}
		h.logger.Error("failed to update task", "error", err)
		api.WriteInternalError(w, "failed to update task")
		return
	}

	api.WriteData(w, http.StatusOK, task)
}

// HandleDelete handles DELETE /api/tasks/{id}. Admin-only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	task, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteNotFound(w, "task not found")
		return
	}

	if !caller.IsAdmin() {
		api.WriteForbidden(w, "only admins can delete tasks")
		return
	}

	if err := h.repo.Delete(r.Context(), task.ID); err != nil {
		h.logger.Error("failed to delete task", "error", err)
		api.WriteInternalError(w, "failed to delete task")
		return
	}

	api.WriteData(w, http.StatusOK, struct{}{})
}
