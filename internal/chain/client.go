package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/samimhm/simio-gateway/internal/config"
)

var (
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrConfirmTimeout    = errors.New("transaction confirmation timed out")
)

// Client wraps the Solana RPC endpoint for the operations the raffle needs:
// token balances, blockhash retrieval, submission and confirmation.
type Client struct {
	rpc       *rpc.Client
	mint      solana.PublicKey
	collector solana.PublicKey
	decimals  uint8
}

func New(cfg config.SolanaConfig) (*Client, error) {
	mint, err := solana.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}
	collector, err := solana.PublicKeyFromBase58(cfg.CollectorAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid collector address: %w", err)
	}

	return &Client{
		rpc:       rpc.New(cfg.RPCURL),
		mint:      mint,
		collector: collector,
		decimals:  cfg.Decimals,
	}, nil
}

// TokenBalance returns the owner's SIMIO balance in whole tokens. A missing
// associated token account is a zero balance, not an error.
func (c *Client) TokenBalance(ctx context.Context, owner string) (uint64, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("invalid owner address: %w", err)
	}

	account, _, err := solana.FindAssociatedTokenAddress(ownerKey, c.mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive token account: %w", err)
	}

	res, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch token balance: %w", err)
	}
	if res.Value == nil {
		return 0, nil
	}

	raw, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected balance amount %q: %w", res.Value.Amount, err)
	}
	return raw / pow10(c.decimals), nil
}

func (c *Client) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SendTransaction submits a signed transaction. Used directly by the
// embedded wallet provider.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
}

// awaitConfirmation polls signature status until the transaction reaches
// the confirmed commitment level. A non-nil error in the status means the
// network accepted the submission but the transaction itself failed.
func (c *Client) awaitConfirmation(ctx context.Context, signature solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, config.ConfirmTimeout)
	defer cancel()

	for {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, signature)
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ErrConfirmTimeout
		case <-time.After(config.ConfirmPollInterval):
		}
	}
}

func pow10(n uint8) uint64 {
	result := uint64(1)
	for i := uint8(0); i < n; i++ {
		result *= 10
	}
	return result
}
