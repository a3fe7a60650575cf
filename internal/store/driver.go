// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend. A driver owns one
// repository per aggregate; implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, run migrations, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite).
	Name() string

	// Users returns the user repository backed by this driver.
	Users() identity.UserRepo

	// Meetings returns the meeting repository backed by this driver.
	Meetings() meetings.Repo

	// Invitations returns the invitation ledger backed by this driver.
	Invitations() invites.Repo

	// Tasks returns the task repository backed by this driver.
	Tasks() tasks.Repo
}
