package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/model"
)

var ErrConsentNotFound = errors.New("consent not found")

func (r *Repository) SetConsent(ctx context.Context, sessionID uuid.UUID, value model.ConsentValue) error {
	query := `
		INSERT INTO consents (session_id, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET value = $2, updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, sessionID, value)
	return err
}

func (r *Repository) GetConsent(ctx context.Context, sessionID uuid.UUID) (*model.Consent, error) {
	var consent model.Consent
	err := r.db.GetContext(ctx, &consent,
		"SELECT * FROM consents WHERE session_id = $1", sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConsentNotFound
		}
		return nil, err
	}
	return &consent, nil
}
