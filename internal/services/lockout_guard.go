package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
)

// LoginAttemptRepository is the append-only attempt log the guard reads and writes
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error)
}

// LockoutConfig holds the lockout policy: Threshold failures inside the
// trailing Window lock the account.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
}

func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{Threshold: 5, Window: 30 * time.Minute}
}

// LockoutGuard decides lockout purely from recent failure volume. There is no
// lock state and no unlock job; an account unlocks on its own once old
// failures slide out of the window.
type LockoutGuard struct {
	repo   LoginAttemptRepository
	config LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLockoutGuard(repo LoginAttemptRepository, config LockoutConfig, logger *slog.Logger) *LockoutGuard {
	return &LockoutGuard{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// RecordAttempt appends the attempt to the log, stamping it with the guard's clock
func (g *LockoutGuard) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = g.now().UTC()
	}
	return g.repo.RecordAttempt(ctx, attempt)
}

// IsLocked reports whether userID has reached the failure threshold inside the window.
// A counting error fails open: the store being down must not lock everyone out.
func (g *LockoutGuard) IsLocked(ctx context.Context, userID string) bool {
	since := g.now().Add(-g.config.Window)

	failures, err := g.repo.CountRecentFailures(ctx, userID, since)
	if err != nil {
		g.logger.Error("failed to count recent login failures",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return false
	}

	if failures >= g.config.Threshold {
		g.logger.Warn("account locked",
			slog.String("user_id", userID),
			slog.Int("failed_attempts", failures),
			slog.Duration("window", g.config.Window))
		return true
	}

	return false
}

// RecentAttempts returns the newest limit attempts for userID
func (g *LockoutGuard) RecentAttempts(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error) {
	return g.repo.ListByUser(ctx, userID, limit)
}
