package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestTransaction(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	memo := solana.NewInstruction(solana.MemoProgramID, nil, []byte("test"))
	tx, err := solana.NewTransaction([]solana.Instruction{memo}, solana.Hash{}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return &payer.PrivateKey
	})
	require.NoError(t, err)
	return tx
}

func TestBridgeUnavailableUntilAnnounced(t *testing.T) {
	p := NewBridgeProvider()
	assert.False(t, p.Available())

	p.Announce(true)
	assert.True(t, p.Available())

	p.Announce(false)
	assert.False(t, p.Available())
}

func TestBridgeConnectResolvedByCallback(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	done := make(chan struct{})
	var result any
	var err error
	go func() {
		defer close(done)
		result, err = p.Connect(context.Background(), false)
	}()

	// Give the connect a moment to start waiting, then complete it the way
	// the callback route does.
	time.Sleep(10 * time.Millisecond)
	p.CompleteConnect(ConnectResult{Address: "addr123"})

	<-done
	require.NoError(t, err)
	assert.Equal(t, "addr123", NormalizeAddress(result))
}

func TestBridgeConnectRejection(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)
	p.CompleteConnect(ConnectResult{Err: ErrUserRejected})

	_, err := p.Connect(context.Background(), false)
	require.ErrorIs(t, err, ErrUserRejected)
}

func TestBridgeConnectTimesOut(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Connect(ctx, false)
	require.ErrorIs(t, err, ErrConnectTimeout)
}

func TestBridgeSilentConnect(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	_, err := p.Connect(context.Background(), true)
	require.ErrorIs(t, err, ErrNoTrustedSession)

	p.SetTrustedAddress("trusted-addr")
	result, err := p.Connect(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "trusted-addr", result)
}

func TestBridgeDisconnect(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	err := p.Disconnect(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)

	p.CompleteConnect(ConnectResult{Address: "addr"})
	_, err = p.Connect(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, p.Disconnect(context.Background()))

	// The trusted address is gone; silent connects must prompt again.
	_, err = p.Connect(context.Background(), true)
	require.ErrorIs(t, err, ErrNoTrustedSession)
}

func TestBridgeSignResolvedByCompletion(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	tx := signedTestTransaction(t)
	want := solana.Signature{1, 2, 3}

	done := make(chan struct{})
	var got solana.Signature
	var signErr error
	go func() {
		defer close(done)
		got, signErr = p.SignAndSend(context.Background(), tx)
	}()

	// The transaction must become visible for the browser wallet to pick up.
	var pending string
	require.Eventually(t, func() bool {
		var ok bool
		pending, ok = p.PendingTransaction()
		return ok
	}, time.Second, 5*time.Millisecond)

	raw, err := base64.StdEncoding.DecodeString(pending)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	p.CompleteSign(want, nil)
	<-done
	require.NoError(t, signErr)
	assert.Equal(t, want, got)

	// Nothing left pending once the round trip finished.
	_, ok := p.PendingTransaction()
	assert.False(t, ok)
}

func TestBridgeSignRejection(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	tx := signedTestTransaction(t)
	done := make(chan error, 1)
	go func() {
		_, err := p.SignAndSend(context.Background(), tx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, ok := p.PendingTransaction()
		return ok
	}, time.Second, 5*time.Millisecond)

	p.CompleteSign(solana.Signature{}, ErrUserRejected)
	require.ErrorIs(t, <-done, ErrUserRejected)
}

func TestBridgeSignTimesOutWithoutCompletion(t *testing.T) {
	p := NewBridgeProvider()
	p.Announce(true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.SignAndSend(ctx, signedTestTransaction(t))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBridgeCompleteConnectWithNobodyWaiting(t *testing.T) {
	p := NewBridgeProvider()
	// Must not block or panic.
	p.CompleteConnect(ConnectResult{Err: errors.New("stale")})
	p.CompleteConnect(ConnectResult{Err: errors.New("stale again")})
}
