package meetings

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repo provides meeting aggregate storage operations. Writes replace the
// whole aggregate; per-document last-write-wins is the only ordering the
// store guarantees.
type Repo interface {
	// Create stores a new meeting. An empty ID is assigned.
	Create(ctx context.Context, meeting *Meeting) error

	// Get retrieves a meeting by ID. Returns ErrMeetingNotFound if absent.
	Get(ctx context.Context, id string) (*Meeting, error)

	// Update persists the full aggregate.
	Update(ctx context.Context, meeting *Meeting) error

	// Delete removes a meeting and everything embedded in it.
	Delete(ctx context.Context, id string) error

	// ListByCreator returns meetings created by the user, newest date first.
	ListByCreator(ctx context.Context, userID string) ([]*Meeting, error)

	// ListByParticipantEmail returns meetings where a participant matches
	// the email, excluding those created by excludeCreator ("" excludes
	// nothing), newest date first.
	ListByParticipantEmail(ctx context.Context, email, excludeCreator string) ([]*Meeting, error)

	// ListAll returns every meeting. Used by aggregate dashboard views.
	ListAll(ctx context.Context) ([]*Meeting, error)
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	meetings map[string]*Meeting
}

// NewMemoryRepo creates a new in-memory meeting repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{meetings: make(map[string]*Meeting)}
}

func (r *MemoryRepo) Create(ctx context.Context, meeting *Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	now := time.Now()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now

	r.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meeting, ok := r.meetings[id]
	if !ok {
		return nil, ErrMeetingNotFound
	}
	return cloneMeeting(meeting), nil
}

func (r *MemoryRepo) Update(ctx context.Context, meeting *Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meetings[meeting.ID]; !ok {
		return ErrMeetingNotFound
	}
	meeting.UpdatedAt = time.Now()
	r.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meetings[id]; !ok {
		return ErrMeetingNotFound
	}
	delete(r.meetings, id)
	return nil
}

func (r *MemoryRepo) ListByCreator(ctx context.Context, userID string) ([]*Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Meeting
	for _, m := range r.meetings {
		if m.CreatedBy == userID {
			result = append(result, cloneMeeting(m))
		}
	}
	sortByDateDesc(result)
	return result, nil
}

func (r *MemoryRepo) ListByParticipantEmail(ctx context.Context, email, excludeCreator string) ([]*Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Meeting
	for _, m := range r.meetings {
		if excludeCreator != "" && m.CreatedBy == excludeCreator {
			continue
		}
		for i := range m.Participants {
			if strings.EqualFold(m.Participants[i].Email, email) {
				result = append(result, cloneMeeting(m))
				break
			}
		}
	}
	sortByDateDesc(result)
	return result, nil
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]*Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		result = append(result, cloneMeeting(m))
	}
	sortByDateDesc(result)
	return result, nil
}

func sortByDateDesc(ms []*Meeting) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Date.After(ms[j].Date) })
}

// cloneMeeting deep-copies the aggregate so callers cannot mutate stored
// state without going through Update.
func cloneMeeting(m *Meeting) *Meeting {
	out := *m
	out.Participants = append([]Participant(nil), m.Participants...)
	out.ActionPoints = append([]ActionPoint(nil), m.ActionPoints...)
	out.PainPoints = append([]PainPoint(nil), m.PainPoints...)
	return &out
}
