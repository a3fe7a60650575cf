package invites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mepad/mepad-server/internal/meetings"
)

// ErrAlreadyDecided is returned when a terminal invitation is asked to move
// to a different terminal value. Re-asserting the same value is a no-op.
var ErrAlreadyDecided = errors.New("invitation has already been decided")

// Service owns invitation status transitions and the participant mirror.
// Every path that moves an invitation off pending goes through here so the
// embedded participant status stays in sync. The invitation write and the
// meeting write are two independent, non-atomic operations; a crash between
// them leaves a window the next successful transition closes.
type Service struct {
	repo     Repo
	meetings meetings.Repo
	logger   *slog.Logger
}

// NewService creates a new invitation service.
func NewService(repo Repo, meetingRepo meetings.Repo, logger *slog.Logger) *Service {
	return &Service{repo: repo, meetings: meetingRepo, logger: logger}
}

// Respond applies an accept/decline decision to the invitation identified by
// token. Returns ErrNotFound, ErrExpired, or ErrAlreadyDecided on guard
// failures. A repeated decision with the same value no-ops successfully.
func (s *Service) Respond(ctx context.Context, token string, status Status) (*Invitation, error) {
	if status != StatusAccepted && status != StatusDeclined {
		return nil, fmt.Errorf("invalid status %q: must be accepted or declined", status)
	}

	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.IsExpired() {
		return nil, ErrExpired
	}
	if inv.IsTerminal() {
		if inv.Status == status {
			return inv, nil
		}
		return nil, ErrAlreadyDecided
	}

	inv.Status = status
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.syncParticipant(ctx, inv)
	return inv, nil
}

// AcceptPendingForEmail flips every pending invitation for the email to
// accepted, mirroring each into its meeting. Used as a registration side
// effect so new users immediately see meetings they were invited to.
// Returns the number of invitations accepted.
func (s *Service) AcceptPendingForEmail(ctx context.Context, email string) (int, error) {
	pending, err := s.repo.ListByEmail(ctx, email, StatusPending)
	if err != nil {
		return 0, err
	}

	var accepted int
	for _, inv := range pending {
		if inv.IsExpired() {
			continue
		}
		inv.Status = StatusAccepted
		if err := s.repo.Update(ctx, inv); err != nil {
			return accepted, err
		}
		s.syncParticipant(ctx, inv)
		accepted++
	}

	if accepted > 0 {
		s.logger.Info("accepted pending invitations at registration", "email", email, "count", accepted)
	}
	return accepted, nil
}

// syncParticipant mirrors the invitation status onto the matching embedded
// participant, when both the meeting and the participant exist. A missing
// meeting or participant is not an error: the ledger row simply has nothing
// to mirror into.
func (s *Service) syncParticipant(ctx context.Context, inv *Invitation) {
	meeting, err := s.meetings.Get(ctx, inv.MeetingID)
	if err != nil {
		if !errors.Is(err, meetings.ErrMeetingNotFound) {
			s.logger.Warn("failed to load meeting for participant sync", "meeting_id", inv.MeetingID, "error", err)
		}
		return
	}

	p := meeting.FindParticipant(inv.Email)
	if p == nil {
		return
	}

	p.Status = meetings.ParticipantStatus(inv.Status)
	if err := s.meetings.Update(ctx, meeting); err != nil {
		s.logger.Warn("failed to sync participant status", "meeting_id", inv.MeetingID, "email", inv.Email, "error", err)
	}
}
