// Package identity provides user management, authentication, and bearer
// token handling.
package identity

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidPassword = errors.New("invalid password")
	ErrLastAdmin       = errors.New("cannot delete the last admin user")
)

// Role constants for user roles.
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// emailPattern matches the address shapes accepted at registration and on
// invitation emails.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// ValidEmail reports whether s is an acceptable email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// User represents an account in the system.
type User struct {
	ID           string    `json:"id"` // UUID
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash, never serialized
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRepo provides user storage operations.
type UserRepo interface {
	// Create creates a new user. Returns ErrUserExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// Get retrieves a user by ID. Returns ErrUserNotFound if not found.
	Get(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email. Returns ErrUserNotFound if not found.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user by ID.
	Delete(ctx context.Context, id string) error

	// List returns all users.
	List(ctx context.Context) ([]*User, error)

	// CountByRole returns the number of users holding the given role.
	CountByRole(ctx context.Context, role string) (int, error)
}

// MemoryUserRepo is an in-memory implementation of UserRepo.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string // lowercased email -> id
}

// NewMemoryUserRepo creates a new in-memory user repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryUserRepo) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[emailKey(user.Email)]; ok {
		return ErrUserExists
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = RoleParticipant
	}

	r.users[user.ID] = user
	r.byEmail[emailKey(user.Email)] = user.ID
	return nil
}

func (r *MemoryUserRepo) Get(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryUserRepo) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	if emailKey(existing.Email) != emailKey(user.Email) {
		if _, taken := r.byEmail[emailKey(user.Email)]; taken {
			return ErrUserExists
		}
		delete(r.byEmail, emailKey(existing.Email))
		r.byEmail[emailKey(user.Email)] = user.ID
	}

	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(r.byEmail, emailKey(user.Email))
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) List(ctx context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryUserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	for _, user := range r.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}
