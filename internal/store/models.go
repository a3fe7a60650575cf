package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

// UserRecord is the persisted form of identity.User.
type UserRecord struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex"` // stored lowercased
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName keeps the table name stable regardless of pluralization rules.
func (UserRecord) TableName() string { return "users" }

// ToDomain converts the record to the domain type.
func (r *UserRecord) ToDomain() *identity.User {
	return &identity.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// NewUserRecord converts a domain user to its persisted form.
func NewUserRecord(u *identity.User) *UserRecord {
	return &UserRecord{
		ID:           u.ID,
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// MeetingRecord is the persisted form of the meeting aggregate. The embedded
// collections are stored as JSON columns; the aggregate is always written
// whole, so there is nothing to query inside them.
type MeetingRecord struct {
	ID           string    `gorm:"primaryKey"`
	Title        string
	Date         time.Time `gorm:"index"`
	Venue        string
	Summary      string
	Participants string // JSON array of meetings.Participant
	ActionPoints string // JSON array of meetings.ActionPoint
	PainPoints   string // JSON array of meetings.PainPoint
	CreatedBy    string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (MeetingRecord) TableName() string { return "meetings" }

// ToDomain converts the record to the domain aggregate.
func (r *MeetingRecord) ToDomain() (*meetings.Meeting, error) {
	m := &meetings.Meeting{
		ID:        r.ID,
		Title:     r.Title,
		Date:      r.Date,
		Venue:     r.Venue,
		Summary:   r.Summary,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := decodeJSONColumn(r.Participants, &m.Participants); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.ActionPoints, &m.ActionPoints); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(r.PainPoints, &m.PainPoints); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMeetingRecord converts a domain aggregate to its persisted form.
func NewMeetingRecord(m *meetings.Meeting) (*MeetingRecord, error) {
	participants, err := json.Marshal(m.Participants)
	if err != nil {
		return nil, err
	}
	actionPoints, err := json.Marshal(m.ActionPoints)
	if err != nil {
		return nil, err
	}
	painPoints, err := json.Marshal(m.PainPoints)
	if err != nil {
		return nil, err
	}
	return &MeetingRecord{
		ID:           m.ID,
		Title:        m.Title,
		Date:         m.Date,
		Venue:        m.Venue,
		Summary:      m.Summary,
		Participants: string(participants),
		ActionPoints: string(actionPoints),
		PainPoints:   string(painPoints),
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func decodeJSONColumn[T any](raw string, out *[]T) error {
	if raw == "" || raw == "null" {
		*out = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// InvitationRecord is the persisted form of invites.Invitation. The
// (email, meeting_id) pair carries a composite unique index so the one
// invitation per address per meeting rule holds under concurrent writers.
type InvitationRecord struct {
	Token     string `gorm:"primaryKey"`
	MeetingID string `gorm:"uniqueIndex:idx_invitations_pair"`
	Email     string `gorm:"uniqueIndex:idx_invitations_pair"` // stored lowercased
	Status    string `gorm:"index"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (InvitationRecord) TableName() string { return "invitations" }

// ToDomain converts the record to the domain type.
func (r *InvitationRecord) ToDomain() *invites.Invitation {
	return &invites.Invitation{
		Token:     r.Token,
		MeetingID: r.MeetingID,
		Email:     r.Email,
		Status:    invites.Status(r.Status),
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
}

// NewInvitationRecord converts a domain invitation to its persisted form.
func NewInvitationRecord(inv *invites.Invitation) *InvitationRecord {
	return &InvitationRecord{
		Token:     inv.Token,
		MeetingID: inv.MeetingID,
		Email:     strings.ToLower(strings.TrimSpace(inv.Email)),
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt,
		CreatedAt: inv.CreatedAt,
	}
}

// TaskRecord is the persisted form of tasks.Task.
type TaskRecord struct {
	ID          string `gorm:"primaryKey"`
	Title       string
	Description string
	Deadline    time.Time `gorm:"index"`
	AssignedTo  string    `gorm:"index"`
	MeetingID   string    `gorm:"index"`
	Priority    string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TaskRecord) TableName() string { return "tasks" }

// ToDomain converts the record to the domain type.
func (r *TaskRecord) ToDomain() *tasks.Task {
	return &tasks.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Deadline:    r.Deadline,
		AssignedTo:  r.AssignedTo,
		MeetingID:   r.MeetingID,
		Priority:    r.Priority,
		Status:      tasks.Status(r.Status),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewTaskRecord converts a domain task to its persisted form.
func NewTaskRecord(t *tasks.Task) *TaskRecord {
	return &TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Deadline:    t.Deadline,
		AssignedTo:  t.AssignedTo,
		MeetingID:   t.MeetingID,
		Priority:    t.Priority,
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
