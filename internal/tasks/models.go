// Package tasks implements the standalone task store: work items assigned
// to users, referencing a meeting by id. Tasks are distinct from the
// action points embedded in the meeting aggregate.
package tasks

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

// Status is the workflow state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority levels.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a work item assigned to a user for a meeting.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	AssignedTo  string    `json:"assignedTo"` // user id; must be a meeting participant at creation
	MeetingID   string    `json:"meetingId"`
	Priority    string    `json:"priority"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the required fields.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("please add a title")
	}
	if t.Deadline.IsZero() {
		return errors.New("please add a deadline")
	}
	if t.AssignedTo == "" {
		return errors.New("please specify who this task is assigned to")
	}
	if t.MeetingID == "" {
		return errors.New("task must reference a meeting")
	}
	if !ValidPriority(t.Priority) {
		return errors.New("invalid priority")
	}
	if !ValidStatus(t.Status) {
		return errors.New("invalid task status")
	}
	return nil
}
