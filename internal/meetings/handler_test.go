package meetings_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mepad/mepad-server/internal/api"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

var (
	creator     = &identity.User{ID: "creator-id", Email: "creator@example.com", Role: identity.RoleParticipant}
	participant = &identity.User{ID: "bob-id", Email: "bob@example.com", Role: identity.RoleParticipant}
	outsider    = &identity.User{ID: "eve-id", Email: "eve@example.com", Role: identity.RoleParticipant}
)

// seedMeeting stores a meeting created by creator with bob as an accepted
// participant.
func seedMeeting(t *testing.T, repo meetings.Repo) *meetings.Meeting {
	t.Helper()
	m := &meetings.Meeting{
		Title:     "Sprint review",
		Date:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Venue:     "Room 4",
		Summary:   "Review the sprint",
		CreatedBy: creator.ID,
		Participants: []meetings.Participant{
			{Name: "Bob", Email: "bob@example.com", Status: meetings.ParticipantAccepted, Role: meetings.RoleViewer},
		},
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	return m
}

func meetingRequest(method, target, body string, user *identity.User, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if user != nil {
		ctx = api.WithUser(ctx, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeMeeting(t *testing.T, rec *httptest.ResponseRecorder) *meetings.Meeting {
	t.Helper()
	var env struct {
		Data meetings.Meeting `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &env.Data
}

func TestHandleCreate(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)

	body := `{
		"title": "Kickoff",
		"date": "2026-09-01T10:00:00Z",
		"venue": "Main hall",
		"summary": "Project kickoff",
		"participants": [{"name": "Bob", "email": "bob@example.com"}]
	}`
	req := meetingRequest(http.MethodPost, "/api/meetings", body, creator, nil)
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	m := decodeMeeting(t, rec)
	if m.CreatedBy != creator.ID {
		t.Errorf("createdBy = %q, want creator id", m.CreatedBy)
	}
	// Defaults are filled on embedded participants.
	if m.Participants[0].Status != meetings.ParticipantInvited {
		t.Errorf("participant status = %q, want invited", m.Participants[0].Status)
	}
	if m.Participants[0].Role != meetings.RoleViewer {
		t.Errorf("participant role = %q, want viewer", m.Participants[0].Role)
	}
}

func TestHandleCreate_MissingTitle(t *testing.T) {
	handler := meetings.NewHandler(meetings.NewMemoryRepo(), testLogger)

	body := `{"date": "2026-09-01T10:00:00Z", "venue": "Main hall", "summary": "x"}`
	req := meetingRequest(http.MethodPost, "/api/meetings", body, creator, nil)
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleList(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	seedMeeting(t, repo)

	// Creator sees their own meeting once, not duplicated through the
	// participant path.
	req := meetingRequest(http.MethodGet, "/api/meetings", "", creator, nil)
	rec := httptest.NewRecorder()
	handler.HandleList(rec, req)

	var env struct {
		Count int                `json:"count"`
		Data  []meetings.Meeting `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Count != 1 {
		t.Errorf("creator count = %d, want 1", env.Count)
	}

	// Participant sees it through the email match.
	req = meetingRequest(http.MethodGet, "/api/meetings", "", participant, nil)
	rec = httptest.NewRecorder()
	handler.HandleList(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Count != 1 {
		t.Errorf("participant count = %d, want 1", env.Count)
	}

	// An outsider sees nothing.
	req = meetingRequest(http.MethodGet, "/api/meetings", "", outsider, nil)
	rec = httptest.NewRecorder()
	handler.HandleList(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Count != 0 {
		t.Errorf("outsider count = %d, want 0", env.Count)
	}
}

func TestHandleGet_Forbidden(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	req := meetingRequest(http.MethodGet, "/api/meetings/"+m.ID, "", outsider, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	handler := meetings.NewHandler(meetings.NewMemoryRepo(), testLogger)

	req := meetingRequest(http.MethodGet, "/api/meetings/missing", "", creator, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleUpdate_ParticipantRestricted(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	// A participant sends title and actionPoints; only actionPoints lands.
	body := `{
		"title": "Hijacked title",
		"actionPoints": [{
			"id": "ap1",
			"description": "follow up",
			"assignedTo": "bob@example.com",
			"dueDate": "2026-09-10T00:00:00Z",
			"status": "pending"
		}]
	}`
	req := meetingRequest(http.MethodPut, "/api/meetings/"+m.ID, body, participant, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	updated := decodeMeeting(t, rec)
	if updated.Title != "Sprint review" {
		t.Errorf("title = %q, participant should not be able to change it", updated.Title)
	}
	if len(updated.ActionPoints) != 1 || updated.ActionPoints[0].Description != "follow up" {
		t.Errorf("actionPoints = %+v", updated.ActionPoints)
	}
}

func TestHandleUpdate_CreatorFullEdit(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	body := `{"title": "Renamed", "venue": "Room 9"}`
	req := meetingRequest(http.MethodPut, "/api/meetings/"+m.ID, body, creator, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleUpdate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	updated := decodeMeeting(t, rec)
	if updated.Title != "Renamed" || updated.Venue != "Room 9" {
		t.Errorf("title = %q, venue = %q", updated.Title, updated.Venue)
	}
	// Untouched fields survive.
	if updated.Summary != "Review the sprint" {
		t.Errorf("summary = %q", updated.Summary)
	}
}

func TestHandleUpdate_CreatedByImmutable(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	body := `{"createdBy": "someone-else"}`
	req := meetingRequest(http.MethodPut, "/api/meetings/"+m.ID, body, creator, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleUpdate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.ReasonCode != api.ReasonInvalidField {
		t.Errorf("reason_code = %q, want invalid_field", env.ReasonCode)
	}
}

func TestHandleDelete_CreatorOnly(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	req := meetingRequest(http.MethodDelete, "/api/meetings/"+m.ID, "", participant, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()
	handler.HandleDelete(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("participant delete status = %d, want 403", rec.Code)
	}

	req = meetingRequest(http.MethodDelete, "/api/meetings/"+m.ID, "", creator, map[string]string{"id": m.ID})
	rec = httptest.NewRecorder()
	handler.HandleDelete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("creator delete status = %d, want 200", rec.Code)
	}

	if _, err := repo.Get(context.Background(), m.ID); err == nil {
		t.Error("meeting still exists after delete")
	}
}

func TestHandleAddActionPoint_ParticipantDefaultAssignee(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	body := `{"description": "write minutes", "dueDate": "2026-09-05T00:00:00Z"}`
	req := meetingRequest(http.MethodPost, "/api/meetings/"+m.ID+"/action-points", body, participant, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleAddActionPoint(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	updated := decodeMeeting(t, rec)
	if len(updated.ActionPoints) != 1 {
		t.Fatalf("action points = %d, want 1", len(updated.ActionPoints))
	}
	ap := updated.ActionPoints[0]
	if ap.AssignedTo != participant.Email {
		t.Errorf("assignedTo = %q, want defaulted to the participant's email", ap.AssignedTo)
	}
	if ap.Status != meetings.ActionPending {
		t.Errorf("status = %q, want pending", ap.Status)
	}
	if ap.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestHandleAddActionPoint_MissingFields(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	// Creator omits assignedTo; no default applies, so validation fails.
	body := `{"description": "write minutes", "dueDate": "2026-09-05T00:00:00Z"}`
	req := meetingRequest(http.MethodPost, "/api/meetings/"+m.ID+"/action-points", body, creator, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleAddActionPoint(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUpdateActionPoint_StatusByParticipant(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)
	m.ActionPoints = []meetings.ActionPoint{{
		ID:          "ap1",
		Description: "follow up",
		AssignedTo:  "bob@example.com",
		DueDate:     time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Status:      meetings.ActionPending,
	}}
	if err := repo.Update(context.Background(), m); err != nil {
		t.Fatalf("seed action point: %v", err)
	}

	params := map[string]string{"id": m.ID, "actionID": "ap1"}

	req := meetingRequest(http.MethodPut, "/", `{"status": "completed"}`, participant, params)
	rec := httptest.NewRecorder()
	handler.HandleUpdateActionPoint(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status update = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	// Full-field edits are creator-only.
	req = meetingRequest(http.MethodPut, "/", `{"description": "changed"}`, participant, params)
	rec = httptest.NewRecorder()
	handler.HandleUpdateActionPoint(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("field edit by participant = %d, want 403", rec.Code)
	}

	req = meetingRequest(http.MethodPut, "/", `{"description": "changed"}`, creator, params)
	rec = httptest.NewRecorder()
	handler.HandleUpdateActionPoint(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("field edit by creator = %d, want 200", rec.Code)
	}
}

func TestHandleUpdateActionPoint_InvalidStatus(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)
	m.ActionPoints = []meetings.ActionPoint{{
		ID: "ap1", Description: "x", AssignedTo: "bob@example.com",
		DueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), Status: meetings.ActionPending,
	}}
	if err := repo.Update(context.Background(), m); err != nil {
		t.Fatalf("seed action point: %v", err)
	}

	req := meetingRequest(http.MethodPut, "/", `{"status": "done"}`,
		creator, map[string]string{"id": m.ID, "actionID": "ap1"})
	rec := httptest.NewRecorder()
	handler.HandleUpdateActionPoint(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteActionPoint(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)
	m.ActionPoints = []meetings.ActionPoint{{
		ID: "ap1", Description: "x", AssignedTo: "bob@example.com",
		DueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), Status: meetings.ActionPending,
	}}
	if err := repo.Update(context.Background(), m); err != nil {
		t.Fatalf("seed action point: %v", err)
	}

	params := map[string]string{"id": m.ID, "actionID": "ap1"}

	req := meetingRequest(http.MethodDelete, "/", "", participant, params)
	rec := httptest.NewRecorder()
	handler.HandleDeleteActionPoint(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("participant delete = %d, want 403", rec.Code)
	}

	req = meetingRequest(http.MethodDelete, "/", "", creator, params)
	rec = httptest.NewRecorder()
	handler.HandleDeleteActionPoint(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("creator delete = %d, want 200", rec.Code)
	}

	stored, err := repo.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(stored.ActionPoints) != 0 {
		t.Errorf("action points = %d after delete, want 0", len(stored.ActionPoints))
	}
}

func TestHandleAddPainPoint(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	admin := &identity.User{ID: "admin-id", Email: "admin@example.com", Role: identity.RoleAdmin}
	body := `{"description": "room was too small"}`
	req := meetingRequest(http.MethodPost, "/", body, admin, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleAddPainPoint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	updated := decodeMeeting(t, rec)
	if len(updated.PainPoints) != 1 {
		t.Fatalf("pain points = %d, want 1", len(updated.PainPoints))
	}
	pp := updated.PainPoints[0]
	if pp.Status != meetings.PainOpen {
		t.Errorf("status = %q, want open", pp.Status)
	}
	if pp.AddedBy != admin.ID {
		t.Errorf("addedBy = %q", pp.AddedBy)
	}
}

func TestHandleAddPainPoint_MissingDescription(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)

	admin := &identity.User{ID: "admin-id", Email: "admin@example.com", Role: identity.RoleAdmin}
	req := meetingRequest(http.MethodPost, "/", `{}`, admin, map[string]string{"id": m.ID})
	rec := httptest.NewRecorder()

	handler.HandleAddPainPoint(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUpdatePainPoint(t *testing.T) {
	repo := meetings.NewMemoryRepo()
	handler := meetings.NewHandler(repo, testLogger)
	m := seedMeeting(t, repo)
	m.PainPoints = []meetings.PainPoint{{ID: "pp1", Description: "x", Status: meetings.PainOpen}}
	if err := repo.Update(context.Background(), m); err != nil {
		t.Fatalf("seed pain point: %v", err)
	}

	admin := &identity.User{ID: "admin-id", Email: "admin@example.com", Role: identity.RoleAdmin}
	req := meetingRequest(http.MethodPut, "/", `{"status": "resolved"}`,
		admin, map[string]string{"id": m.ID, "pointID": "pp1"})
	rec := httptest.NewRecorder()

	handler.HandleUpdatePainPoint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	updated := decodeMeeting(t, rec)
	if updated.PainPoints[0].Status != meetings.PainResolved {
		t.Errorf("pain point status = %q, want resolved", updated.PainPoints[0].Status)
	}
}
