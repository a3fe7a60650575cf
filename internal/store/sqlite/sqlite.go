// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/meetings"
	"github.com/mepad/mepad-server/internal/store"
	"github.com/mepad/mepad-server/internal/tasks"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Options are the sqlite driver settings, decoded from the store options map.
type Options struct {
	// Path is the database file path. ":memory:" gives a throwaway database.
	Path string `mapstructure:"path"`
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	opts Options
	db   *gorm.DB

	users       *userStore
	meetings    *meetingStore
	invitations *invitationStore
	tasks       *taskStore
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	var opts Options
	if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid sqlite options: %w", err)
	}
	if opts.Path == "" {
		opts.Path = "mepad.db"
	}
	return &Driver{opts: opts}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(d.opts.Path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	if err := db.AutoMigrate(
		&store.UserRecord{},
		&store.MeetingRecord{},
		&store.InvitationRecord{},
		&store.TaskRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	d.users = &userStore{db: db}
	d.meetings = &meetingStore{db: db}
	d.invitations = &invitationStore{db: db}
	d.tasks = &taskStore{db: db}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Driver) Users() identity.UserRepo  { return d.users }
func (d *Driver) Meetings() meetings.Repo   { return d.meetings }
func (d *Driver) Invitations() invites.Repo { return d.invitations }
func (d *Driver) Tasks() tasks.Repo         { return d.tasks }

// userStore implements identity.UserRepo.
type userStore struct {
	db *gorm.DB
}

func (s *userStore) Create(ctx context.Context, user *identity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = identity.RoleParticipant
	}

	result := s.db.WithContext(ctx).Create(store.NewUserRecord(user))
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return identity.ErrUserExists
	}
	return result.Error
}

func (s *userStore) Get(ctx context.Context, id string) (*identity.User, error) {
	var rec store.UserRecord
	result := s.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, result.Error
	}
	return rec.ToDomain(), nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	var rec store.UserRecord
	key := strings.ToLower(strings.TrimSpace(email))
	result := s.db.WithContext(ctx).First(&rec, "email = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, result.Error
	}
	return rec.ToDomain(), nil
}

func (s *userStore) Update(ctx context.Context, user *identity.User) error {
	var existing store.UserRecord
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return identity.ErrUserNotFound
		}
		return err
	}

	user.UpdatedAt = time.Now()
	result := s.db.WithContext(ctx).Save(store.NewUserRecord(user))
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return identity.ErrUserExists
	}
	return result.Error
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&store.UserRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (s *userStore) List(ctx context.Context) ([]*identity.User, error) {
	var recs []*store.UserRecord
	result := s.db.WithContext(ctx).Order("created_at ASC").Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	users := make([]*identity.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.ToDomain())
	}
	return users, nil
}

func (s *userStore) CountByRole(ctx context.Context, role string) (int, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&store.UserRecord{}).Where("role = ?", role).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}

// meetingStore implements meetings.Repo. The embedded collections live in
// JSON columns, so participant matching happens in process after loading.
type meetingStore struct {
	db *gorm.DB
}

func (s *meetingStore) Create(ctx context.Context, meeting *meetings.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	now := time.Now()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now

	rec, err := store.NewMeetingRecord(meeting)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *meetingStore) Get(ctx context.Context, id string) (*meetings.Meeting, error) {
	var rec store.MeetingRecord
	result := s.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, meetings.ErrMeetingNotFound
		}
		return nil, result.Error
	}
	return rec.ToDomain()
}

func (s *meetingStore) Update(ctx context.Context, meeting *meetings.Meeting) error {
	var existing store.MeetingRecord
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", meeting.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return meetings.ErrMeetingNotFound
		}
		return err
	}

	meeting.UpdatedAt = time.Now()
	rec, err := store.NewMeetingRecord(meeting)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *meetingStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&store.MeetingRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return meetings.ErrMeetingNotFound
	}
	return nil
}

func (s *meetingStore) ListByCreator(ctx context.Context, userID string) ([]*meetings.Meeting, error) {
	var recs []*store.MeetingRecord
	result := s.db.WithContext(ctx).Where("created_by = ?", userID).Order("date DESC").Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	return toMeetings(recs)
}

func (s *meetingStore) ListByParticipantEmail(ctx context.Context, email, excludeCreator string) ([]*meetings.Meeting, error) {
	query := s.db.WithContext(ctx).Order("date DESC")
	if excludeCreator != "" {
		query = query.Where("created_by <> ?", excludeCreator)
	}

	var recs []*store.MeetingRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}

	all, err := toMeetings(recs)
	if err != nil {
		return nil, err
	}
	var result []*meetings.Meeting
	for _, m := range all {
		if m.FindParticipant(email) != nil {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *meetingStore) ListAll(ctx context.Context) ([]*meetings.Meeting, error) {
	var recs []*store.MeetingRecord
	result := s.db.WithContext(ctx).Order("date DESC").Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	return toMeetings(recs)
}

func toMeetings(recs []*store.MeetingRecord) ([]*meetings.Meeting, error) {
	result := make([]*meetings.Meeting, 0, len(recs))
	for _, rec := range recs {
		m, err := rec.ToDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// invitationStore implements invites.Repo. The unique (email, meeting_id)
// index enforces the pair constraint at the database level.
type invitationStore struct {
	db *gorm.DB
}

func (s *invitationStore) Create(ctx context.Context, inv *invites.Invitation) error {
	if inv.Token == "" {
		token, err := invites.GenerateToken()
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
		inv.ExpiresAt = now.Add(invites.DefaultTTL)
	}
	if inv.Status == "" {
		inv.Status = invites.StatusPending
	}

	result := s.db.WithContext(ctx).Create(store.NewInvitationRecord(inv))
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return invites.ErrDuplicate
	}
	return result.Error
}

func (s *invitationStore) GetByToken(ctx context.Context, token string) (*invites.Invitation, error) {
	var rec store.InvitationRecord
	result := s.db.WithContext(ctx).First(&rec, "token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, invites.ErrNotFound
		}
		return nil, result.Error
	}
	return rec.ToDomain(), nil
}

func (s *invitationStore) Update(ctx context.Context, inv *invites.Invitation) error {
	var existing store.InvitationRecord
	if err := s.db.WithContext(ctx).First(&existing, "token = ?", inv.Token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invites.ErrNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Save(store.NewInvitationRecord(inv)).Error
}

func (s *invitationStore) ListByMeeting(ctx context.Context, meetingID string) ([]*invites.Invitation, error) {
	var recs []*store.InvitationRecord
	result := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	return toInvitations(recs), nil
}

func (s *invitationStore) ListByEmail(ctx context.Context, email string, status invites.Status) ([]*invites.Invitation, error) {
	query := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var recs []*store.InvitationRecord
	if err := query.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toInvitations(recs), nil
}

func toInvitations(recs []*store.InvitationRecord) []*invites.Invitation {
	result := make([]*invites.Invitation, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.ToDomain())
	}
	return result
}

// taskStore implements tasks.Repo.
type taskStore struct {
	db *gorm.DB
}

func (s *taskStore) Create(ctx context.Context, task *tasks.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = tasks.StatusPending
	}

	return s.db.WithContext(ctx).Create(store.NewTaskRecord(task)).Error
}

func (s *taskStore) Get(ctx context.Context, id string) (*tasks.Task, error) {
	var rec store.TaskRecord
	result := s.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, tasks.ErrTaskNotFound
		}
		return nil, result.Error
	}
	return rec.ToDomain(), nil
}

func (s *taskStore) Update(ctx context.Context, task *tasks.Task) error {
	var existing store.TaskRecord
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", task.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tasks.ErrTaskNotFound
		}
		return err
	}

	task.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(store.NewTaskRecord(task)).Error
}

func (s *taskStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&store.TaskRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tasks.ErrTaskNotFound
	}
	return nil
}

func (s *taskStore) ListByMeeting(ctx context.Context, meetingID string) ([]*tasks.Task, error) {
	var recs []*store.TaskRecord
	result := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&recs)
	if result.Error != nil {
		return nil, result.Error
	}
	return toTasks(recs), nil
}

func (s *taskStore) ListByAssignee(ctx context.Context, userID string, excludeStatus tasks.Status) ([]*tasks.Task, error) {
	query := s.db.WithContext(ctx).Where("assigned_to = ?", userID)
	if excludeStatus != "" {
		query = query.Where("status <> ?", string(excludeStatus))
	}

	var recs []*store.TaskRecord
	if err := query.Order("deadline ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toTasks(recs), nil
}

func toTasks(recs []*store.TaskRecord) []*tasks.Task {
	result := make([]*tasks.Task, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.ToDomain())
	}
	return result
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ identity.UserRepo = (*userStore)(nil)
var _ meetings.Repo = (*meetingStore)(nil)
var _ invites.Repo = (*invitationStore)(nil)
var _ tasks.Repo = (*taskStore)(nil)
