package dashboard_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/dashboard"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	admin = &identity.User{ID: "admin-id", Email: "admin@example.com", Role: identity.RoleAdmin}
	bob   = &identity.User{ID: "bob-id", Email: "bob@example.com", Role: identity.RoleParticipant}
)

func seedMeeting(t *testing.T, repo meetings.Repo, title string, date time.Time, painPoints []meetings.PainPoint) *meetings.Meeting {
	t.Helper()
	m := &meetings.Meeting{
		Title:     title,
		Date:      date,
		Venue:     "Room 4",
		Summary:   "Agenda",
		CreatedBy: admin.ID,
		Participants: []meetings.Participant{
			{Name: "Bob", Email: "bob@example.com", Status: meetings.ParticipantAccepted, Role: meetings.RoleViewer},
		},
		PainPoints: painPoints,
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	return m
}

func dashboardRequest(user *identity.User) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	return req.WithContext(api.WithUser(req.Context(), user))
}

func TestHandleDashboard_Admin(t *testing.T) {
	meetingRepo := meetings.NewMemoryRepo()
	taskRepo := tasks.NewMemoryRepo()
	handler := dashboard.NewHandler(meetingRepo, taskRepo, testLogger)

	future := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-48 * time.Hour)

	seedMeeting(t, meetingRepo, "Upcoming", future, nil)
	seedMeeting(t, meetingRepo, "Old", past, []meetings.PainPoint{
		{ID: "pp1", Description: "projector broken", Status: meetings.PainOpen, AddedAt: past},
		{ID: "pp2", Description: "fixed already", Status: meetings.PainResolved, AddedAt: past},
	})

	rec := httptest.NewRecorder()
	handler.HandleDashboard(rec, dashboardRequest(admin))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data dashboard.AdminDashboard `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Data.Role != identity.RoleAdmin {
		t.Errorf("role = %q, want admin", env.Data.Role)
	}
	// Past meetings are filtered out of the upcoming section.
	if len(env.Data.UpcomingMeetings) != 1 || env.Data.UpcomingMeetings[0].Title != "Upcoming" {
		t.Errorf("upcomingMeetings = %+v", env.Data.UpcomingMeetings)
	}
	if env.Data.UpcomingMeetings[0].ParticipantCount != 1 {
		t.Errorf("participantCount = %d, want 1", env.Data.UpcomingMeetings[0].ParticipantCount)
	}
	// Resolved pain points are excluded from the feedback section.
	if len(env.Data.UnresolvedFeedback) != 1 {
		t.Fatalf("unresolvedFeedback = %+v", env.Data.UnresolvedFeedback)
	}
	if env.Data.UnresolvedFeedback[0].Description != "projector broken" {
		t.Errorf("feedback = %+v", env.Data.UnresolvedFeedback[0])
	}
	if env.Data.UnresolvedFeedback[0].MeetingTitle != "Old" {
		t.Errorf("meetingTitle = %q", env.Data.UnresolvedFeedback[0].MeetingTitle)
	}
}

func TestHandleDashboard_Participant(t *testing.T) {
	ctx := context.Background()
	meetingRepo := meetings.NewMemoryRepo()
	taskRepo := tasks.NewMemoryRepo()
	handler := dashboard.NewHandler(meetingRepo, taskRepo, testLogger)

	m := seedMeeting(t, meetingRepo, "Upcoming", time.Now().Add(48*time.Hour), nil)

	mkTask := func(title string, status tasks.Status) {
		task := &tasks.Task{
			Title: title, Deadline: time.Now().Add(72 * time.Hour),
			AssignedTo: bob.ID, MeetingID: m.ID,
			Priority: tasks.PriorityMedium, Status: status, CreatedBy: admin.ID,
		}
		if err := taskRepo.Create(ctx, task); err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}
	mkTask("open one", tasks.StatusPending)
	mkTask("in flight", tasks.StatusInProgress)
	mkTask("already done", tasks.StatusCompleted)

	rec := httptest.NewRecorder()
	handler.HandleDashboard(rec, dashboardRequest(bob))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data dashboard.ParticipantDashboard `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Data.Role != identity.RoleParticipant {
		t.Errorf("role = %q, want participant", env.Data.Role)
	}
	// The meeting shows up through the participant email match.
	if len(env.Data.UpcomingMeetings) != 1 {
		t.Errorf("upcomingMeetings = %+v", env.Data.UpcomingMeetings)
	}
	// Completed tasks are excluded.
	if len(env.Data.OpenTasks) != 2 {
		t.Fatalf("openTasks = %d, want 2", len(env.Data.OpenTasks))
	}
	for _, task := range env.Data.OpenTasks {
		if task.Status == tasks.StatusCompleted {
			t.Errorf("completed task leaked into openTasks: %+v", task)
		}
	}
}

func TestHandleDashboard_UpcomingCapAndOrder(t *testing.T) {
	meetingRepo := meetings.NewMemoryRepo()
	handler := dashboard.NewHandler(meetingRepo, tasks.NewMemoryRepo(), testLogger)

	// Seven future meetings, seeded out of order.
	for _, offset := range []int{7, 3, 1, 6, 2, 5, 4} {
		seedMeeting(t, meetingRepo, fmt.Sprintf("day-%d", offset), time.Now().Add(time.Duration(offset)*24*time.Hour), nil)
	}

	rec := httptest.NewRecorder()
	handler.HandleDashboard(rec, dashboardRequest(admin))

	var env struct {
		Data dashboard.AdminDashboard `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(env.Data.UpcomingMeetings) != 5 {
		t.Fatalf("upcomingMeetings = %d, want capped at 5", len(env.Data.UpcomingMeetings))
	}
	for i, want := range []string{"day-1", "day-2", "day-3", "day-4", "day-5"} {
		if env.Data.UpcomingMeetings[i].Title != want {
			t.Errorf("upcomingMeetings[%d] = %q, want %q", i, env.Data.UpcomingMeetings[i].Title, want)
		}
	}
}
