package invites

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repo provides invitation ledger storage operations.
type Repo interface {
	// Create stores a new invitation. Returns ErrDuplicate if a row for the
	// same (email, meetingID) pair already exists.
	Create(ctx context.Context, inv *Invitation) error

	// GetByToken retrieves an invitation by token. Returns ErrNotFound if
	// absent. Expiry is not checked here; it is a handler-level guard.
	GetByToken(ctx context.Context, token string) (*Invitation, error)

	// Update persists an invitation (status changes).
	Update(ctx context.Context, inv *Invitation) error

	// ListByMeeting returns all invitations referencing the meeting.
	ListByMeeting(ctx context.Context, meetingID string) ([]*Invitation, error)

	// ListByEmail returns all invitations for the email, optionally filtered
	// by status ("" means any).
	ListByEmail(ctx context.Context, email string, status Status) ([]*Invitation, error)
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	byToken map[string]*Invitation
	byPair  map[string]string // email\x00meetingID -> token
}

// NewMemoryRepo creates a new in-memory invitation repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byToken: make(map[string]*Invitation),
		byPair:  make(map[string]string),
	}
}

func pairKey(email, meetingID string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "\x00" + meetingID
}

func (r *MemoryRepo) Create(ctx context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(inv.Email, inv.MeetingID)
	if _, ok := r.byPair[key]; ok {
		return ErrDuplicate
	}

	if inv.Token == "" {
		token, err := GenerateToken()
		if err != nil {
			return err
		}
		inv.Token = token
	}
	now := time.Now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(DefaultTTL)
	}
	if inv.Status == "" {
		inv.Status = StatusPending
	}

	stored := *inv
	r.byToken[inv.Token] = &stored
	r.byPair[key] = inv.Token
	return nil
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inv
	return &out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byToken[inv.Token]; !ok {
		return ErrNotFound
	}
	stored := *inv
	r.byToken[inv.Token] = &stored
	return nil
}

func (r *MemoryRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Invitation
	for _, inv := range r.byToken {
		if inv.MeetingID == meetingID {
			out := *inv
			result = append(result, &out)
		}
	}
	sortByCreatedAt(result)
	return result, nil
}

func (r *MemoryRepo) ListByEmail(ctx context.Context, email string, status Status) ([]*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Invitation
	for _, inv := range r.byToken {
		if !strings.EqualFold(inv.Email, email) {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		out := *inv
		result = append(result, &out)
	}
	sortByCreatedAt(result)
	return result, nil
}

func sortByCreatedAt(invs []*Invitation) {
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.Before(invs[j].CreatedAt) })
}
