package model

import (
	"time"

	"github.com/google/uuid"
)

type ConnectionMode string

const (
	ModeNone      ConnectionMode = "none"
	ModeExtension ConnectionMode = "extension"
	ModeEmbedded  ConnectionMode = "embedded"
)

// Session is one browser's gateway session. The wallet address on it is
// mutated only through the session manager's connect/disconnect transitions.
type Session struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	WalletAddress       *string        `json:"wallet_address,omitempty" db:"wallet_address"`
	ConnectionMode      ConnectionMode `json:"connection_mode" db:"connection_mode"`
	Trusted             bool           `json:"trusted" db:"trusted"`
	AffiliateTracked    bool           `json:"affiliate_tracked" db:"affiliate_tracked"`
	PostInstallRedirect *string        `json:"post_install_redirect,omitempty" db:"post_install_redirect"`
	EmbeddedKey         *string        `json:"-" db:"embedded_key"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	LastSeenAt          time.Time      `json:"last_seen_at" db:"last_seen_at"`
}

func (s *Session) Address() string {
	if s.WalletAddress == nil {
		return ""
	}
	return *s.WalletAddress
}
