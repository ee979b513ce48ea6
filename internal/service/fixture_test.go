package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/db/dbtest"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

// memStorage keeps blobs in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failDel bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Save(ctx context.Context, key, contentType string, content io.Reader) error {
	b, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errors.New("storage unavailable")
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) URL(ctx context.Context, key string) (string, error) {
	return "https://files.test/" + key, nil
}

func (m *memStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type fixture struct {
	db        *sqlx.DB
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	tokens    repository.TokenRepository
	opps      repository.OpportunityRepository
	timeline  repository.TimelineRepository
	reminders repository.ReminderRepository
	documents repository.DocumentRepository
	storage   *memStorage
	email     *EmailService
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	return &fixture{
		db:        conn,
		users:     repository.NewUserRepository(conn),
		profiles:  repository.NewProfileRepository(conn),
		tokens:    repository.NewTokenRepository(conn),
		opps:      repository.NewOpportunityRepository(conn),
		timeline:  repository.NewTimelineRepository(conn),
		reminders: repository.NewReminderRepository(conn),
		documents: repository.NewDocumentRepository(conn),
		storage:   newMemStorage(),
		email:     NewEmailService("", "noreply@optracker.test", "https://optracker.test", "OpTracker", true),
		now:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) opportunityService() *OpportunityService {
	s := NewOpportunityService(f.opps, f.timeline, f.reminders, f.documents, f.storage, nil)
	s.now = f.clock
	return s
}

func (f *fixture) documentService() *DocumentService {
	s := NewDocumentService(f.documents, f.opps, f.storage)
	s.now = f.clock
	return s
}

func (f *fixture) dashboardService() *DashboardService {
	s := NewDashboardService(f.opps)
	s.now = f.clock
	return s
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(f.users, f.profiles, f.tokens, f.email, "test-secret", false, time.Hour, 15*time.Minute)
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := f.authService().Signup(ctx, SignupInput{Name: "Ada Lovelace", Email: email, Password: "analytical-engine"})
	require.NoError(t, err)
	return user
}
