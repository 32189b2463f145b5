package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/model"
)

func (r *Repository) CreateJoinAttempt(ctx context.Context, attempt *model.JoinAttempt) error {
	query := `
		INSERT INTO join_attempts (id, session_id, address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return r.db.QueryRowContext(ctx, query,
		attempt.ID,
		attempt.SessionID,
		attempt.Address,
		attempt.Status,
	).Scan(&attempt.CreatedAt)
}

func (r *Repository) CompleteJoinAttempt(ctx context.Context, id uuid.UUID, signature string) error {
	query := `UPDATE join_attempts SET status = $2, signature = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, model.JoinStatusConfirmed, signature)
	return err
}

func (r *Repository) FailJoinAttempt(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `UPDATE join_attempts SET status = $2, error = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, model.JoinStatusFailed, errMsg)
	return err
}

func (r *Repository) GetJoinAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.JoinAttempt, error) {
	var attempts []model.JoinAttempt
	query := "SELECT * FROM join_attempts WHERE session_id = $1 ORDER BY created_at DESC"
	err := r.db.SelectContext(ctx, &attempts, query, sessionID)
	return attempts, err
}
