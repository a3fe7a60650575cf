// Package invites implements the invitation ledger: standalone tokenized
// records linking an email address to a meeting. The ledger is the source of
// truth for "has this person responded"; the embedded participant records on
// the meeting are a read-optimized mirror kept in sync by every path that
// moves an invitation off pending.
package invites

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// Status represents the status of an invitation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

var (
	ErrNotFound  = errors.New("invitation not found")
	ErrDuplicate = errors.New("invitation already exists for this email and meeting")
	ErrExpired   = errors.New("invitation has expired")
)

// DefaultTTL is the invitation validity window.
const DefaultTTL = 30 * 24 * time.Hour

// Invitation is a tokenized ledger row. Its lifecycle is independent of the
// referenced meeting: deleting the meeting orphans the row rather than
// cascading.
type Invitation struct {
	Token     string    `json:"token"`
	MeetingID string    `json:"meetingId"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the invitation is past its expiry. Expiry is a
// read guard, not a state transition: the status field is left untouched.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsTerminal reports whether the invitation has been decided.
func (i *Invitation) IsTerminal() bool {
	return i.Status == StatusAccepted || i.Status == StatusDeclined
}

// GenerateToken creates a cryptographically secure random invitation token.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
