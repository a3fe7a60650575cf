// Package meetings implements the meeting aggregate: the meeting record plus
// its embedded participants, action points, and pain points, owned as one
// unit. Authorization is relative to the aggregate: the creator holds full
// write authority, participants (matched by account email) a restricted one.
package meetings

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrActionPointNotFound = errors.New("action point not found")
	ErrPainPointNotFound   = errors.New("pain point not found")
	ErrForbidden           = errors.New("not authorized for this meeting")
)

// ParticipantStatus mirrors the invitation lifecycle on the embedded record.
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
)

// Participant roles.
const (
	RoleViewer      = "viewer"
	RoleContributor = "contributor"
	RoleOrganizer   = "organizer"
)

// ValidParticipantRole reports whether role is one of the known roles.
func ValidParticipantRole(role string) bool {
	switch role {
	case RoleViewer, RoleContributor, RoleOrganizer:
		return true
	}
	return false
}

// ActionPointStatus is the workflow state of an action point.
type ActionPointStatus string

const (
	ActionPending    ActionPointStatus = "pending"
	ActionInProgress ActionPointStatus = "in-progress"
	ActionCompleted  ActionPointStatus = "completed"
)

// ValidActionPointStatus reports whether s is a known action point status.
func ValidActionPointStatus(s ActionPointStatus) bool {
	switch s {
	case ActionPending, ActionInProgress, ActionCompleted:
		return true
	}
	return false
}

// Pain point statuses. The set is advisory; "resolved" is what the
// dashboards filter on.
const (
	PainOpen       = "open"
	PainInProgress = "in-progress"
	PainResolved   = "resolved"
)

// Participant is an embedded record representing an invited person.
// Membership is determined by email equality against the caller's account
// email, not by a foreign key.
type Participant struct {
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Status ParticipantStatus `json:"status"`
	Role   string            `json:"role"`
}

// ActionPoint is a task-like embedded item on a meeting.
type ActionPoint struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	AssignedTo  string            `json:"assignedTo"` // free-text email, not a foreign key
	DueDate     time.Time         `json:"dueDate"`
	Status      ActionPointStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// PainPoint is a lightweight status-tracked note on a meeting.
type PainPoint struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	AddedBy     string    `json:"addedBy"` // user id
	AddedAt     time.Time `json:"addedAt"`
	Status      string    `json:"status"`
}

// MaxTitleLength bounds the meeting title.
const MaxTitleLength = 50

// Meeting is the aggregate root. CreatedBy is set exactly once at creation
// and never changes.
type Meeting struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Date         time.Time     `json:"date"`
	Venue        string        `json:"venue"`
	Summary      string        `json:"summary"`
	Participants []Participant `json:"participants"`
	ActionPoints []ActionPoint `json:"actionPoints"`
	PainPoints   []PainPoint   `json:"painPoints"`
	CreatedBy    string        `json:"createdBy"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Validate checks the required fields of the aggregate root.
func (m *Meeting) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("please add a title")
	}
	if len(m.Title) > MaxTitleLength {
		return errors.New("title cannot be more than 50 characters")
	}
	if m.Date.IsZero() {
		return errors.New("please add a date")
	}
	if strings.TrimSpace(m.Venue) == "" {
		return errors.New("please add a venue")
	}
	if strings.TrimSpace(m.Summary) == "" {
		return errors.New("please add a summary")
	}
	return nil
}

// FindParticipant returns the embedded participant matching email, or nil.
// Matching is case-insensitive, consistent with account email matching.
func (m *Meeting) FindParticipant(email string) *Participant {
	for i := range m.Participants {
		if strings.EqualFold(m.Participants[i].Email, email) {
			return &m.Participants[i]
		}
	}
	return nil
}

// FindActionPoint returns the embedded action point with the given id, or nil.
func (m *Meeting) FindActionPoint(id string) *ActionPoint {
	for i := range m.ActionPoints {
		if m.ActionPoints[i].ID == id {
			return &m.ActionPoints[i]
		}
	}
	return nil
}

// FindPainPoint returns the embedded pain point with the given id, or nil.
func (m *Meeting) FindPainPoint(id string) *PainPoint {
	for i := range m.PainPoints {
		if m.PainPoints[i].ID == id {
			return &m.PainPoints[i]
		}
	}
	return nil
}

// Redacted returns a copy safe to show to an invitee before they respond:
// participant emails and action point assignees are blanked.
func (m *Meeting) Redacted() *Meeting {
	out := *m
	out.Participants = make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		p.Email = ""
		out.Participants[i] = p
	}
	out.ActionPoints = make([]ActionPoint, len(m.ActionPoints))
	for i, ap := range m.ActionPoints {
		ap.AssignedTo = ""
		out.ActionPoints[i] = ap
	}
	return &out
}
