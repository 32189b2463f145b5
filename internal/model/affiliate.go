package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// TagTTL is how long a captured referral code stays valid. Expiry is checked
// lazily on read, never by a background timer.
const TagTTL = 30 * 24 * time.Hour

var affiliateCodePattern = regexp.MustCompile(`^[A-Z0-9]{5}$`)

// ValidAffiliateCode reports whether code is a well-formed referral code:
// exactly five uppercase alphanumerics. Anything else is silently ignored by
// callers; a malformed code is an expected case, not an error.
func ValidAffiliateCode(code string) bool {
	return affiliateCodePattern.MatchString(code)
}

// AffiliateTag is a captured referral attribution, scoped to a session.
type AffiliateTag struct {
	SessionID  uuid.UUID `json:"session_id" db:"session_id"`
	Code       string    `json:"code" db:"code"`
	CapturedAt time.Time `json:"captured_at" db:"captured_at"`
}

func (t *AffiliateTag) Expired(now time.Time) bool {
	return now.Sub(t.CapturedAt) > TagTTL
}

// AffiliateRecord mirrors the backend's affiliate state. Reward totals are
// never mutated locally.
type AffiliateRecord struct {
	AffiliateID          string        `json:"affiliateId"`
	WalletAddress        string        `json:"walletAddress"`
	AffiliateLink        string        `json:"affiliateLink"`
	PendingRewards       float64       `json:"pendingRewards"`
	TransferredRewards   float64       `json:"transferredRewards"`
	ReferredParticipants []string      `json:"referredParticipants"`
	RewardHistory        []RewardEntry `json:"rewardHistory,omitempty"`
}

type RewardEntry struct {
	Round       int     `json:"round"`
	Participant string  `json:"participant"`
	Amount      float64 `json:"amount"`
	Transferred bool    `json:"transferred"`
	Timestamp   int64   `json:"timestamp"`
}
