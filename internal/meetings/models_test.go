package meetings_test

import (
	"strings"
	"testing"
	"time"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/meetings"
)

func validMeeting() *meetings.Meeting {
	return &meetings.Meeting{
		Title:   "Quarterly planning",
		Date:    time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Venue:   "Room 4",
		Summary: "Plan Q4",
	}
}

func TestMeeting_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*meetings.Meeting)
		wantOK bool
	}{
		{"valid", func(m *meetings.Meeting) {}, true},
		{"missing title", func(m *meetings.Meeting) { m.Title = "" }, false},
		{"whitespace title", func(m *meetings.Meeting) { m.Title = "   " }, false},
		{"title too long", func(m *meetings.Meeting) { m.Title = strings.Repeat("x", 51) }, false},
		{"title at limit", func(m *meetings.Meeting) { m.Title = strings.Repeat("x", 50) }, true},
		{"missing date", func(m *meetings.Meeting) { m.Date = time.Time{} }, false},
		{"missing venue", func(m *meetings.Meeting) { m.Venue = "" }, false},
		{"missing summary", func(m *meetings.Meeting) { m.Summary = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMeeting()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate failed: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestMeeting_FindParticipant(t *testing.T) {
	m := validMeeting()
	m.Participants = []meetings.Participant{
		{Name: "Bob", Email: "bob@example.com", Status: meetings.ParticipantInvited},
	}

	if p := m.FindParticipant("BOB@example.com"); p == nil {
		t.Error("expected case-insensitive match")
	}
	if p := m.FindParticipant("carol@example.com"); p != nil {
		t.Error("expected no match for unknown email")
	}

	// The returned pointer aliases the slice so callers can mutate in place.
	p := m.FindParticipant("bob@example.com")
	p.Status = meetings.ParticipantAccepted
	if m.Participants[0].Status != meetings.ParticipantAccepted {
		t.Error("mutation through FindParticipant did not stick")
	}
}

func TestMeeting_Redacted(t *testing.T) {
	m := validMeeting()
	m.Participants = []meetings.Participant{
		{Name: "Bob", Email: "bob@example.com"},
	}
	m.ActionPoints = []meetings.ActionPoint{
		{ID: "ap1", Description: "do the thing", AssignedTo: "bob@example.com"},
	}

	red := m.Redacted()

	if red.Participants[0].Email != "" {
		t.Error("participant email not blanked")
	}
	if red.ActionPoints[0].AssignedTo != "" {
		t.Error("action point assignee not blanked")
	}
	if red.Participants[0].Name != "Bob" {
		t.Error("participant name should survive redaction")
	}

	// The original must be untouched.
	if m.Participants[0].Email != "bob@example.com" {
		t.Error("redaction mutated the original meeting")
	}
	if m.ActionPoints[0].AssignedTo != "bob@example.com" {
		t.Error("redaction mutated the original action points")
	}
}

func TestResolveAccess(t *testing.T) {
	m := validMeeting()
	m.CreatedBy = "creator-id"
	m.Participants = []meetings.Participant{
		{Email: "bob@example.com"},
	}

	creator := &identity.User{ID: "creator-id", Email: "creator@example.com"}
	participant := &identity.User{ID: "bob-id", Email: "Bob@Example.com"}
	outsider := &identity.User{ID: "x", Email: "x@example.com"}

	if a := meetings.ResolveAccess(m, creator); !a.IsCreator || !a.CanView() {
		t.Errorf("creator access = %+v", a)
	}
	if a := meetings.ResolveAccess(m, participant); !a.IsParticipant || a.IsCreator || !a.CanEditActionPoints() {
		t.Errorf("participant access = %+v", a)
	}
	if a := meetings.ResolveAccess(m, outsider); a.CanView() {
		t.Errorf("outsider access = %+v", a)
	}
	if a := meetings.ResolveAccess(m, nil); a.CanView() {
		t.Errorf("anonymous access = %+v", a)
	}
}

func TestValidParticipantRole(t *testing.T) {
	for _, role := range []string{meetings.RoleViewer, meetings.RoleContributor, meetings.RoleOrganizer} {
		if !meetings.ValidParticipantRole(role) {
			t.Errorf("ValidParticipantRole(%q) = false", role)
		}
	}
	if meetings.ValidParticipantRole("owner") {
		t.Error("ValidParticipantRole(owner) = true")
	}
}
