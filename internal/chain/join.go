package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/samimhm/simio-gateway/internal/model"
)

// Signer signs and submits a transaction on the owner's behalf. Satisfied by
// the wallet providers.
type Signer interface {
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// StakeBaseUnits is the raffle entry amount in the mint's base units:
// 1,000,000 whole tokens scaled by the decimal places.
func StakeBaseUnits(decimals uint8) uint64 {
	return uint64(model.JoinStakeTokens) * pow10(decimals)
}

// SubmitJoin moves the fixed entry stake from owner to the collector. Steps
// run strictly in sequence; the first failure aborts the rest and its error
// is surfaced verbatim. Nothing here retries — a failed join requires the
// user to submit again.
func (c *Client) SubmitJoin(ctx context.Context, signer Signer, owner string) (solana.Signature, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid owner address: %w", err)
	}

	sourceAccount, _, err := solana.FindAssociatedTokenAddress(ownerKey, c.mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive source token account: %w", err)
	}
	collectorAccount, _, err := solana.FindAssociatedTokenAddress(c.collector, c.mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive collector token account: %w", err)
	}

	// Creation instructions only for the accounts actually missing.
	var instructions []solana.Instruction
	for _, target := range []struct {
		account solana.PublicKey
		wallet  solana.PublicKey
	}{
		{sourceAccount, ownerKey},
		{collectorAccount, c.collector},
	} {
		exists, err := c.accountExists(ctx, target.account)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to check token account: %w", err)
		}
		if !exists {
			instructions = append(instructions,
				ata.NewCreateInstruction(ownerKey, target.wallet, c.mint).Build())
		}
	}

	instructions = append(instructions, token.NewTransferInstruction(
		StakeBaseUnits(c.decimals),
		sourceAccount,
		collectorAccount,
		ownerKey,
		nil,
	).Build())

	blockhash, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(ownerKey),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	signature, err := signer.SignAndSend(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.awaitConfirmation(ctx, signature); err != nil {
		return signature, err
	}
	return signature, nil
}
