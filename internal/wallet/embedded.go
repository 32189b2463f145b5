package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/samimhm/simio-gateway/internal/model"
)

// TxSender submits a signed transaction to the cluster. Satisfied by the
// chain client.
type TxSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// EmbeddedProvider is the in-process fallback signer used when no wallet
// extension announced itself, mirroring the embedded SDK on the site.
type EmbeddedProvider struct {
	mu      sync.Mutex
	key     solana.PrivateKey
	sender  TxSender
	trusted bool
}

func NewEmbeddedProvider(sender TxSender) *EmbeddedProvider {
	account := solana.NewWallet()
	return &EmbeddedProvider{
		key:    account.PrivateKey,
		sender: sender,
	}
}

// NewEmbeddedProviderFromKey restores an embedded wallet from a base58
// private key, keeping the same address across restarts.
func NewEmbeddedProviderFromKey(privateKey string, sender TxSender) (*EmbeddedProvider, error) {
	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid embedded wallet key: %w", err)
	}
	return &EmbeddedProvider{key: key, sender: sender}, nil
}

// PrivateKey exports the signer key in base58 so a session's embedded wallet
// survives a gateway restart.
func (p *EmbeddedProvider) PrivateKey() string {
	return p.key.String()
}

func (p *EmbeddedProvider) Mode() model.ConnectionMode { return model.ModeEmbedded }

func (p *EmbeddedProvider) Available() bool { return true }

func (p *EmbeddedProvider) Connect(ctx context.Context, onlyIfTrusted bool) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if onlyIfTrusted && !p.trusted {
		return nil, ErrNoTrustedSession
	}
	p.trusted = true
	// solana.PublicKey stringifies to base58; the manager normalizes it.
	return p.key.PublicKey(), nil
}

func (p *EmbeddedProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.trusted {
		return ErrNotConnected
	}
	p.trusted = false
	return nil
}

func (p *EmbeddedProvider) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	owner := p.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &p.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return p.sender.SendTransaction(ctx, tx)
}
