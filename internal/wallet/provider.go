package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/samimhm/simio-gateway/internal/model"
)

var (
	// ErrUserRejected is an explicit rejection of a connect or sign prompt.
	// Never retried.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrConnectTimeout is a transient failure; connect attempts retry it
	// with fixed backoff.
	ErrConnectTimeout = errors.New("wallet connect timed out")

	// ErrNotConnected from Disconnect is treated as success by the manager.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrNoTrustedSession means a silent connect found no previously trusted
	// connection. Silent attempts never prompt.
	ErrNoTrustedSession = errors.New("no trusted session")

	ErrNotInitialized    = errors.New("wallet not initialized")
	ErrConnectInProgress = errors.New("connection already in progress")
	ErrAppNotInstalled   = errors.New("wallet app not installed")
)

// Provider is one way of reaching a wallet: the user's own app or extension
// through the callback bridge, or the embedded in-process signer used as
// fallback.
//
// Connect returns the wallet's public address in whatever shape the
// underlying integration produces; the manager normalizes it.
type Provider interface {
	Mode() model.ConnectionMode
	Available() bool
	Connect(ctx context.Context, onlyIfTrusted bool) (any, error)
	Disconnect(ctx context.Context) error
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}
