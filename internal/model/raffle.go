package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// RequiredParticipants is the round size; reaching it triggers round
	// resolution on the backend.
	RequiredParticipants = 3

	// JoinStakeTokens is the entry stake in whole SIMIO tokens. The raw
	// on-chain amount is this scaled by the mint's decimals.
	JoinStakeTokens = 1_000_000
)

// PrizeTable maps winner rank (0..2) to the prize in whole SIMIO tokens.
var PrizeTable = [3]int64{2_000_000, 300_000, 200_000}

// RaffleStatus mirrors the backend's current-round view. It is a read-only
// cache on this side; participants are in join order.
type RaffleStatus struct {
	Round        int      `json:"round"`
	Participants []string `json:"participants"`
	Ready        bool     `json:"ready"`
}

func (s *RaffleStatus) HasParticipant(address string) bool {
	if address == "" {
		return false
	}
	for _, p := range s.Participants {
		if p == address {
			return true
		}
	}
	return false
}

// RaffleRound is one resolved round. Winners always has exactly three
// entries, ordered by rank.
type RaffleRound struct {
	Round   int      `json:"round"`
	Winners []string `json:"winners"`
}

// PrizeRank returns the rank (0..2) of address in winners, or -1 when the
// address won nothing.
func PrizeRank(winners []string, address string) int {
	if address == "" {
		return -1
	}
	for i, w := range winners {
		if w == address {
			return i
		}
	}
	return -1
}

// PrizeAmount returns the prize in whole tokens for a rank, 0 for no prize.
func PrizeAmount(rank int) int64 {
	if rank < 0 || rank >= len(PrizeTable) {
		return 0
	}
	return PrizeTable[rank]
}

type JoinStatus string

const (
	JoinStatusPending   JoinStatus = "pending"
	JoinStatusConfirmed JoinStatus = "confirmed"
	JoinStatusFailed    JoinStatus = "failed"
)

// JoinAttempt is the audit record of one transaction submission.
type JoinAttempt struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SessionID uuid.UUID  `json:"session_id" db:"session_id"`
	Address   string     `json:"address" db:"address"`
	Signature *string    `json:"signature,omitempty" db:"signature"`
	Status    JoinStatus `json:"status" db:"status"`
	Error     *string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
