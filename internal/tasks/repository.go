package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repo provides task storage operations.
type Repo interface {
	// Create stores a new task. An empty ID is assigned.
	Create(ctx context.Context, task *Task) error

	// Get retrieves a task by ID. Returns ErrTaskNotFound if absent.
	Get(ctx context.Context, id string) (*Task, error)

	// Update persists a task.
	Update(ctx context.Context, task *Task) error

	// Delete removes a task by ID.
	Delete(ctx context.Context, id string) error

	// ListByMeeting returns all tasks referencing the meeting.
	ListByMeeting(ctx context.Context, meetingID string) ([]*Task, error)

	// ListByAssignee returns tasks assigned to the user, excluding the given
	// status ("" excludes nothing), ordered by deadline.
	ListByAssignee(ctx context.Context, userID string, excludeStatus Status) ([]*Task, error)
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewMemoryRepo creates a new in-memory task repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]*Task)}
}

func (r *MemoryRepo) Create(ctx context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = StatusPending
	}

	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	out := *task
	return &out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Task
	for _, task := range r.tasks {
		if task.MeetingID == meetingID {
			out := *task
			result = append(result, &out)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryRepo) ListByAssignee(ctx context.Context, userID string, excludeStatus Status) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Task
	for _, task := range r.tasks {
		if task.AssignedTo != userID {
			continue
		}
		if excludeStatus != "" && task.Status == excludeStatus {
			continue
		}
		out := *task
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Deadline.Before(result[j].Deadline) })
	return result, nil
}
