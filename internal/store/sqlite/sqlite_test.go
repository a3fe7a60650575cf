package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/store"
)

func newDriver(t *testing.T) store.Driver {
	t.Helper()

	driver, err := store.New(&store.DriverConfig{
		Driver:  "sqlite",
		Options: map[string]any{"path": filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := driver.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestDriver_Registered(t *testing.T) {
	driver := newDriver(t)
	if driver.Name() != "sqlite" {
		t.Errorf("name = %q", driver.Name())
	}
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := newDriver(t).Users()

	if err := users.Create(ctx, &identity.User{Email: "alice@example.com"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := users.Create(ctx, &identity.User{Email: "Alice@Example.com"})
	if !errors.Is(err, identity.ErrUserExists) {
		t.Errorf("Create error = %v, want ErrUserExists", err)
	}

	got, err := users.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.Role != identity.RoleParticipant {
		t.Errorf("role = %q, want defaulted to participant", got.Role)
	}
}

func TestMeetingStore_AggregateRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := newDriver(t).Meetings()

	m := &meetings.Meeting{
		Title:     "Kickoff",
		Date:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Venue:     "Main hall",
		Summary:   "Project kickoff",
		CreatedBy: "creator-id",
		Participants: []meetings.Participant{
			{Name: "Bob", Email: "bob@example.com", Status: meetings.ParticipantInvited, Role: meetings.RoleViewer},
		},
	}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Kickoff" || len(got.Participants) != 1 {
		t.Errorf("got %+v", got)
	}

	// The whole aggregate is rewritten on update.
	got.Participants[0].Status = meetings.ParticipantAccepted
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	again, _ := repo.Get(ctx, m.ID)
	if again.Participants[0].Status != meetings.ParticipantAccepted {
		t.Errorf("participant status = %q", again.Participants[0].Status)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, meetings.ErrMeetingNotFound) {
		t.Errorf("Get missing error = %v", err)
	}
}

func TestMeetingStore_ListByParticipantEmail(t *testing.T) {
	ctx := context.Background()
	repo := newDriver(t).Meetings()

	mk := func(createdBy string, participantEmail string) *meetings.Meeting {
		m := &meetings.Meeting{
			Title: "M", Date: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			Venue: "V", Summary: "S", CreatedBy: createdBy,
		}
		if participantEmail != "" {
			m.Participants = []meetings.Participant{{Name: "P", Email: participantEmail}}
		}
		if err := repo.Create(ctx, m); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		return m
	}
	mk("u1", "bob@example.com")
	mk("u2", "bob@example.com")
	mk("u2", "carol@example.com")

	all, err := repo.ListByParticipantEmail(ctx, "BOB@example.com", "")
	if err != nil {
		t.Fatalf("ListByParticipantEmail failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	excluded, err := repo.ListByParticipantEmail(ctx, "bob@example.com", "u1")
	if err != nil {
		t.Fatalf("ListByParticipantEmail failed: %v", err)
	}
	if len(excluded) != 1 {
		t.Errorf("excluded = %d, want 1", len(excluded))
	}
}

func TestInvitationStore_PairConstraint(t *testing.T) {
	ctx := context.Background()
	repo := newDriver(t).Invitations()

	inv := &invites.Invitation{MeetingID: "m1", Email: "bob@example.com"}
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if inv.Token == "" {
		t.Fatal("expected a generated token")
	}
	if inv.Status != invites.StatusPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}

	// Same pair, different case: rejected by the unique index.
	err := repo.Create(ctx, &invites.Invitation{MeetingID: "m1", Email: "Bob@Example.com"})
	if !errors.Is(err, invites.ErrDuplicate) {
		t.Errorf("Create error = %v, want ErrDuplicate", err)
	}

	// Same email on another meeting is fine.
	if err := repo.Create(ctx, &invites.Invitation{MeetingID: "m2", Email: "bob@example.com"}); err != nil {
		t.Errorf("Create for second meeting failed: %v", err)
	}

	pending, err := repo.ListByEmail(ctx, "bob@example.com", invites.StatusPending)
	if err != nil {
		t.Fatalf("ListByEmail failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestInvitationStore_StatusUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newDriver(t).Invitations()

	inv := &invites.Invitation{MeetingID: "m1", Email: "bob@example.com"}
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	inv.Status = invites.StatusAccepted
	if err := repo.Update(ctx, inv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByToken(ctx, inv.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if got.Status != invites.StatusAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}

	if _, err := repo.GetByToken(ctx, "missing"); !errors.Is(err, invites.ErrNotFound) {
		t.Errorf("GetByToken missing error = %v", err)
	}
}
