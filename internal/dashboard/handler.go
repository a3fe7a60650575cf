// Package dashboard aggregates meetings, pain points and tasks into
// role-specific overview payloads.
package dashboard

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

// maxItems caps each dashboard section.
const maxItems = 5

// Handler serves the dashboard endpoint.
type Handler struct {
	meetings meetings.Repo
	tasks    tasks.Repo
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a new dashboard handler.
func NewHandler(meetingRepo meetings.Repo, taskRepo tasks.Repo, logger *slog.Logger) *Handler {
	return &Handler{meetings: meetingRepo, tasks: taskRepo, logger: logger, now: time.Now}
}

// MeetingSummary is the trimmed meeting view used in dashboard sections.
type MeetingSummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Date             time.Time `json:"date"`
	ParticipantCount int       `json:"participantCount"`
}

// PainPointSummary is a pain point together with the meeting it belongs to.
type PainPointSummary struct {
	MeetingID    string    `json:"meetingId"`
	MeetingTitle string    `json:"meetingTitle"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	AddedAt      time.Time `json:"addedAt"`
}

// AdminDashboard is the payload returned to admin callers.
type AdminDashboard struct {
	Role               string             `json:"role"`
	UpcomingMeetings   []MeetingSummary   `json:"upcomingMeetings"`
	UnresolvedFeedback []PainPointSummary `json:"unresolvedFeedback"`
}

// ParticipantDashboard is the payload returned to participant callers.
type ParticipantDashboard struct {
	Role             string           `json:"role"`
	UpcomingMeetings []MeetingSummary `json:"upcomingMeetings"`
	OpenTasks        []*tasks.Task    `json:"openTasks"`
}

// HandleDashboard handles GET /api/dashboard. Admins see their upcoming
// meetings and the latest unresolved pain points; participants see the
// meetings they are invited to and their open tasks.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	caller := api.UserFromContext(r.Context())

	if caller.IsAdmin() {
		h.adminView(w, r, caller)
		return
	}
	h.participantView(w, r, caller)
}

func (h *Handler) adminView(w http.ResponseWriter, r *http.Request, caller *identity.User) {
	ctx := r.Context()

	created, err := h.meetings.ListByCreator(ctx, caller.ID)
	if err != nil {
		h.logger.Error("failed to list meetings", "error", err)
		api.WriteInternalError(w, "failed to load dashboard")
		return
	}

	all, err := h.meetings.ListAll(ctx)
	if err != nil {
		h.logger.Error("failed to list meetings", "error", err)
		api.WriteInternalError(w, "failed to load dashboard")
		return
	}

	var feedback []PainPointSummary
	for _, m := range all {
		for _, p := range m.PainPoints {
			if p.Status == meetings.PainResolved {
				continue
			}
			feedback = append(feedback, PainPointSummary{
				MeetingID:    m.ID,
				MeetingTitle: m.Title,
				Description:  p.Description,
				Status:       p.Status,
				AddedAt:      p.AddedAt,
			})
		}
	}
	sort.Slice(feedback, func(i, j int) bool { return feedback[i].AddedAt.After(feedback[j].AddedAt) })
	if len(feedback) > maxItems {
		feedback = feedback[:maxItems]
	}

	api.WriteData(w, http.StatusOK, AdminDashboard{
		Role:               caller.Role,
		UpcomingMeetings:   h.upcoming(created),
		UnresolvedFeedback: feedback,
	})
}

func (h *Handler) participantView(w http.ResponseWriter, r *http.Request, caller *identity.User) {
	ctx := r.Context()

	participating, err := h.meetings.ListByParticipantEmail(ctx, caller.Email, "")
	if err != nil {
		h.logger.Error("failed to list meetings", "error", err)
		api.WriteInternalError(w, "failed to load dashboard")
		return
	}

	open, err := h.tasks.ListByAssignee(ctx, caller.ID, tasks.StatusCompleted)
	if err != nil {
		h.logger.Error("failed to list tasks", "error", err)
		api.WriteInternalError(w, "failed to load dashboard")
		return
	}
	if len(open) > maxItems {
		open = open[:maxItems]
	}

	api.WriteData(w, http.StatusOK, ParticipantDashboard{
		Role:             caller.Role,
		UpcomingMeetings: h.upcoming(participating),
		OpenTasks:        open,
	})
}

// upcoming keeps meetings at or after the current time, soonest first,
// capped at maxItems.
func (h *Handler) upcoming(ms []*meetings.Meeting) []MeetingSummary {
	now := h.now()

	result := make([]MeetingSummary, 0, maxItems)
	filtered := make([]*meetings.Meeting, 0, len(ms))
	for _, m := range ms {
		if m.Date.Before(now) {
			continue
		}
		filtered = append(filtered, m)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.Before(filtered[j].Date) })

	for _, m := range filtered {
		if len(result) == maxItems {
			break
		}
		result = append(result, MeetingSummary{
			ID:               m.ID,
			Title:            m.Title,
			Date:             m.Date,
			ParticipantCount: len(m.Participants),
		})
	}
	return result
}
