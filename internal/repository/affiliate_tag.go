package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/model"
)

var ErrTagNotFound = errors.New("affiliate tag not found")

// UpsertTag stores a captured referral code for a session. A later capture
// replaces the earlier one, refreshing the timestamp.
func (r *Repository) UpsertTag(ctx context.Context, tag *model.AffiliateTag) error {
	query := `
		INSERT INTO affiliate_tags (session_id, code, captured_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET code = $2, captured_at = $3`
	_, err := r.db.ExecContext(ctx, query, tag.SessionID, tag.Code, tag.CapturedAt)
	return err
}

func (r *Repository) GetTag(ctx context.Context, sessionID uuid.UUID) (*model.AffiliateTag, error) {
	var tag model.AffiliateTag
	err := r.db.GetContext(ctx, &tag,
		"SELECT * FROM affiliate_tags WHERE session_id = $1", sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *Repository) DeleteTag(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM affiliate_tags WHERE session_id = $1", sessionID)
	return err
}
