package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsentValue string

const (
	ConsentAccepted ConsentValue = "accepted"
	ConsentRefused  ConsentValue = "refused"
)

func (v ConsentValue) Valid() bool {
	return v == ConsentAccepted || v == ConsentRefused
}

type Consent struct {
	SessionID uuid.UUID    `json:"session_id" db:"session_id"`
	Value     ConsentValue `json:"value" db:"value"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
