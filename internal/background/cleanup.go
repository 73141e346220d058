package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RevocationCleaner drops blacklist rows whose tokens have expired anyway
type RevocationCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupManager runs revoked-token cleanup on a ticker.
// Login attempts are never pruned here; they are the account activity history.
type CleanupManager struct {
	revocations RevocationCleaner
	logger      *slog.Logger
	interval    time.Duration
	timeout     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewCleanupManager(revocations RevocationCleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		revocations: revocations,
		logger:      logger,
		interval:    interval,
		timeout:     30 * time.Second,
		stopCh:      make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled. One pass runs immediately.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	rows, err := cm.revocations.CleanupExpiredTokens(ctx)
	if err != nil {
		cm.logger.Error("revoked token cleanup failed", slog.Any("error", err))
		return
	}
	if rows > 0 {
		cm.logger.Info("revoked token cleanup completed", slog.Int64("rows_deleted", rows))
	}
}

// Stop is safe to call more than once
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
