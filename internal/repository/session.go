package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

func (r *Repository) CreateSession(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, connection_mode, trusted, affiliate_tracked)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, last_seen_at`

	return r.db.QueryRowContext(ctx, query,
		session.ID,
		session.ConnectionMode,
		session.Trusted,
		session.AffiliateTracked,
	).Scan(&session.CreatedAt, &session.LastSeenAt)
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, "SELECT * FROM sessions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *Repository) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_seen_at = NOW() WHERE id = $1", id)
	return err
}

// SetSessionWallet records the address produced by a connect transition.
// A nil address is a disconnect; it also drops the trusted flag.
func (r *Repository) SetSessionWallet(ctx context.Context, id uuid.UUID, address *string, mode model.ConnectionMode, trusted bool) error {
	query := `
		UPDATE sessions
		SET wallet_address = $2, connection_mode = $3, trusted = $4, last_seen_at = NOW()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, address, mode, trusted)
	return err
}

func (r *Repository) MarkSessionTracked(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET affiliate_tracked = TRUE WHERE id = $1", id)
	return err
}

// SetSessionEmbeddedKey stores the session's embedded wallet key so the same
// address comes back after a restart.
func (r *Repository) SetSessionEmbeddedKey(ctx context.Context, id uuid.UUID, key string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET embedded_key = $2 WHERE id = $1", id, key)
	return err
}

func (r *Repository) SetPostInstallRedirect(ctx context.Context, id uuid.UUID, path *string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET post_install_redirect = $2 WHERE id = $1", id, path)
	return err
}

// DeleteIdleSessions removes sessions not seen since the cutoff and returns
// how many were dropped. Tags and consents go with them via FK cascade.
func (r *Repository) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE last_seen_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
