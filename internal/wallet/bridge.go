package wallet

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/samimhm/simio-gateway/internal/model"
)

// ConnectResult is what the browser posts back after the wallet app or
// extension resolved a connect prompt.
type ConnectResult struct {
	Address any
	Err     error
}

type signResult struct {
	Signature solana.Signature
	Err       error
}

// BridgeProvider reaches the user's own wallet (extension or mobile app).
// Prompts resolve out-of-band: the browser completes them on the callback
// route and the pending call is released through CompleteConnect /
// CompleteSign. A call that nobody completes ends with the context deadline,
// which the manager classifies as a connect timeout.
type BridgeProvider struct {
	mu             sync.Mutex
	present        bool
	trustedAddress string
	connected      bool

	connectCh chan ConnectResult
	signCh    chan signResult
	pendingTx string
}

func NewBridgeProvider() *BridgeProvider {
	return &BridgeProvider{
		connectCh: make(chan ConnectResult, 1),
		signCh:    make(chan signResult, 1),
	}
}

// Announce records whether the browser reported a wallet extension. Until
// announced, the provider is unavailable and the manager falls through to
// the embedded one.
func (p *BridgeProvider) Announce(present bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present = present
}

// SetTrustedAddress seeds the address a silent connect may resume without
// prompting.
func (p *BridgeProvider) SetTrustedAddress(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trustedAddress = address
}

func (p *BridgeProvider) Mode() model.ConnectionMode { return model.ModeExtension }

func (p *BridgeProvider) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present
}

func (p *BridgeProvider) Connect(ctx context.Context, onlyIfTrusted bool) (any, error) {
	if onlyIfTrusted {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.trustedAddress == "" {
			return nil, ErrNoTrustedSession
		}
		p.connected = true
		return p.trustedAddress, nil
	}

	select {
	case res := <-p.connectCh:
		if res.Err != nil {
			return nil, res.Err
		}
		address := NormalizeAddress(res.Address)
		p.mu.Lock()
		p.trustedAddress = address
		p.connected = true
		p.mu.Unlock()
		return res.Address, nil
	case <-ctx.Done():
		return nil, ErrConnectTimeout
	}
}

// CompleteConnect releases a pending connect prompt. Safe to call when no
// connect is waiting; the result is buffered for the next attempt or dropped.
func (p *BridgeProvider) CompleteConnect(res ConnectResult) {
	select {
	case p.connectCh <- res:
	default:
	}
}

func (p *BridgeProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}
	p.connected = false
	p.trustedAddress = ""
	return nil
}

func (p *BridgeProvider) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	encoded, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, err
	}

	p.mu.Lock()
	p.pendingTx = base64.StdEncoding.EncodeToString(encoded)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pendingTx = ""
		p.mu.Unlock()
	}()

	select {
	case res := <-p.signCh:
		return res.Signature, res.Err
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	}
}

// PendingTransaction exposes the base64 transaction the browser should hand
// to the wallet for signing, if one is waiting.
func (p *BridgeProvider) PendingTransaction() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingTx, p.pendingTx != ""
}

// CompleteSign releases a pending sign request with the wallet's result.
func (p *BridgeProvider) CompleteSign(signature solana.Signature, err error) {
	select {
	case p.signCh <- signResult{Signature: signature, Err: err}:
	default:
	}
}
