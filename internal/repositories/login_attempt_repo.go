package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/database"
	"github.com/ecotrajet/ecotrajet/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginAttemptRepository is the append-only authentication log. Rows are never updated.
type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

// RecordAttempt appends one attempt, filling ID and AttemptedAt when unset
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO login_attempts (id, user_id, identifier, ip_address, user_agent, success, failure_reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.UserID,
		attempt.Identifier,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("record login attempt: %w", database.MapPostgresError(err))
	}
	return nil
}

// CountRecentFailures counts failed attempts for userID at or after since
func (r *LoginAttemptRepository) CountRecentFailures(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE user_id = $1 AND success = FALSE AND attempted_at >= $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count login failures: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// ListByUser returns the newest attempts first
func (r *LoginAttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, user_id, identifier, ip_address, user_agent, success, failure_reason, attempted_at
		FROM login_attempts
		WHERE user_id = $1
		ORDER BY attempted_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list login attempts: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0, limit)
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.Identifier, &a.IPAddress, &a.UserAgent,
			&a.Success, &a.FailureReason, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return attempts, nil
}
