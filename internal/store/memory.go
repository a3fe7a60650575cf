package store

import (
	"context"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/tasks"
)

func init() {
	Register("memory", func(cfg *DriverConfig) (Driver, error) {
		return NewMemoryDriver(), nil
	})
}

// MemoryDriver wires the per-package in-memory repositories into the Driver
// interface. Nothing survives a restart.
type MemoryDriver struct {
	users       *identity.MemoryUserRepo
	meetings    *meetings.MemoryRepo
	invitations *invites.MemoryRepo
	tasks       *tasks.MemoryRepo
}

// NewMemoryDriver creates a memory driver with empty repositories.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		users:       identity.NewMemoryUserRepo(),
		meetings:    meetings.NewMemoryRepo(),
		invitations: invites.NewMemoryRepo(),
		tasks:       tasks.NewMemoryRepo(),
	}
}

func (d *MemoryDriver) Init(ctx context.Context) error { return nil }
func (d *MemoryDriver) Close() error                   { return nil }

func (d *MemoryDriver) Name() string { return "memory" }

func (d *MemoryDriver) Users() identity.UserRepo  { return d.users }
func (d *MemoryDriver) Meetings() meetings.Repo   { return d.meetings }
func (d *MemoryDriver) Invitations() invites.Repo { return d.invitations }
func (d *MemoryDriver) Tasks() tasks.Repo         { return d.tasks }

var _ Driver = (*MemoryDriver)(nil)
