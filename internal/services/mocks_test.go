package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	pkgauth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc      func(ctx context.Context, email string) (*models.User, error)
	ListFunc            func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountFunc           func(ctx context.Context) (int, error)
	CreateFunc          func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc          func(ctx context.Context, id string, user *models.User) (*models.User, error)
	ActivateFunc        func(ctx context.Context, id string) error
	UpdatePasswordFunc  func(ctx context.Context, id, passwordHash, tokenKey string, changedAt time.Time) error
	UpdateLastLoginFunc func(ctx context.Context, id string, at time.Time) error
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Activate(ctx context.Context, id string) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash, tokenKey string, changedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash, tokenKey, changedAt)
	}
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, tokenType, expiresAt, reason)
	}
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	return false, nil
}

// memoryRevocations is a map-backed revocation store
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]string // jti -> reason
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]string)}
}

func (m *memoryRevocations) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = reason
	return nil
}

func (m *memoryRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordAttemptFunc       func(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresFunc func(ctx context.Context, userID string, since time.Time) (int, error)
	ListByUserFunc          func(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	if m.CountRecentFailuresFunc != nil {
		return m.CountRecentFailuresFunc(ctx, userID, since)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.LoginAttempt{}, nil
}

// attemptLog is an in-memory append-only attempt log exposed through MockLoginAttemptRepository
type attemptLog struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
}

func (l *attemptLog) repo() *MockLoginAttemptRepository {
	return &MockLoginAttemptRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			cp := *attempt
			l.attempts = append(l.attempts, &cp)
			return nil
		},
		CountRecentFailuresFunc: func(ctx context.Context, userID string, since time.Time) (int, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			n := 0
			for _, a := range l.attempts {
				if a.UserID != nil && *a.UserID == userID && !a.Success && !a.AttemptedAt.Before(since) {
					n++
				}
			}
			return n, nil
		},
		ListByUserFunc: func(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			out := make([]*models.LoginAttempt, 0, limit)
			for i := len(l.attempts) - 1; i >= 0 && len(out) < limit; i-- {
				if a := l.attempts[i]; a.UserID != nil && *a.UserID == userID {
					out = append(out, a)
				}
			}
			return out, nil
		},
	}
}

func (l *attemptLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

func (l *attemptLog) last() *models.LoginAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attempts) == 0 {
		return nil
	}
	return l.attempts[len(l.attempts)-1]
}

// MockMailer records sent messages
type MockMailer struct {
	mu       sync.Mutex
	Sent     []EmailMessage
	SendFunc func(ctx context.Context, msg EmailMessage) error
}

func (m *MockMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	Events []AccountEvent
	Err    error
}

func (m *MockPublisher) Publish(ctx context.Context, event AccountEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

func (m *MockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Type)
	}
	return out
}

// memoryUsers is a map-backed user store exposed through MockUserRepository
type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
	seq  int
}

func newMemoryUsers(users ...*models.User) *memoryUsers {
	m := &memoryUsers{byID: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		m.byID[u.ID] = &cp
	}
	return m
}

func (m *memoryUsers) repo() *MockUserRepository {
	return &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if u, ok := m.byID[id]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, models.ErrNotFound
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, u := range m.byID {
				if u.Email == email {
					cp := *u
					return &cp, nil
				}
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.seq++
			user.ID = testUUIDs[m.seq%len(testUUIDs)]
			user.TokenKey = "token-key"
			user.CreatedAt = time.Now()
			user.UpdatedAt = user.CreatedAt
			cp := *user
			m.byID[user.ID] = &cp
			return user, nil
		},
		ActivateFunc: func(ctx context.Context, id string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			u, ok := m.byID[id]
			if !ok {
				return models.ErrNotFound
			}
			u.IsActive = true
			return nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash, tokenKey string, changedAt time.Time) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			u, ok := m.byID[id]
			if !ok {
				return models.ErrNotFound
			}
			u.PasswordHash = passwordHash
			u.TokenKey = tokenKey
			u.PasswordChangedAt = &changedAt
			return nil
		},
		UpdateLastLoginFunc: func(ctx context.Context, id string, at time.Time) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			u, ok := m.byID[id]
			if !ok {
				return models.ErrNotFound
			}
			u.LastLoginAt = &at
			return nil
		},
	}
}

func (m *memoryUsers) get(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.byID[id]
	return &cp
}

var testUUIDs = []string{
	"5f0c8a56-7f34-4c8e-9d0e-2a4f7b1f3c11",
	"0b7e2f7a-3f1e-4f43-a3b5-4f0b6f6e7d21",
	"9d1c3a52-6a0e-4d37-8f0b-6e2b8c4d1a90",
}

// NewTestUser creates an active passenger with the given password
func NewTestUser(t *testing.T, id, email, password string) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Alice",
		LastName:     "Martin",
		Role:         models.RolePassenger,
		IsActive:     true,
		TokenKey:     "token-key",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
