package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/model"
)

type fakeProvider struct {
	mode        model.ConnectionMode
	available   bool
	connectFn   func(ctx context.Context, onlyIfTrusted bool) (any, error)
	disconnect  error
	connects    int
	disconnects int
}

func (p *fakeProvider) Mode() model.ConnectionMode { return p.mode }
func (p *fakeProvider) Available() bool            { return p.available }

func (p *fakeProvider) Connect(ctx context.Context, onlyIfTrusted bool) (any, error) {
	p.connects++
	if p.connectFn != nil {
		return p.connectFn(ctx, onlyIfTrusted)
	}
	return "addr", nil
}

func (p *fakeProvider) Disconnect(ctx context.Context) error {
	p.disconnects++
	return p.disconnect
}

func (p *fakeProvider) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func testWalletConfig() config.WalletConfig {
	return config.WalletConfig{
		ConnectTimeout: 100 * time.Millisecond,
		ConnectRetries: 3,
		RetryBackoff:   time.Millisecond,
		FeatureRoute:   "/raffle",
	}
}

func newTestManager(providers ...Provider) *Manager {
	m := NewManager(testWalletConfig(), providers...)
	m.sleep = func(time.Duration) {}
	return m
}

func TestInitPicksFirstAvailableProvider(t *testing.T) {
	extension := &fakeProvider{mode: model.ModeExtension, available: false}
	embedded := &fakeProvider{mode: model.ModeEmbedded, available: true}
	m := newTestManager(extension, embedded)

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, StateIdle, m.State())
	assert.Equal(t, model.ModeEmbedded, m.Mode())
}

func TestInitPrefersExtensionWhenPresent(t *testing.T) {
	extension := &fakeProvider{mode: model.ModeExtension, available: true}
	embedded := &fakeProvider{mode: model.ModeEmbedded, available: true}
	m := newTestManager(extension, embedded)

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, model.ModeExtension, m.Mode())
}

func TestInitFailureIsFatal(t *testing.T) {
	m := newTestManager(&fakeProvider{available: false})

	err := m.Init(context.Background())
	require.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, StateInitFailed, m.State())
	assert.NotEmpty(t, m.LastError())

	// A second Init does not recover; the manager must be rebuilt.
	require.ErrorIs(t, m.Init(context.Background()), ErrNotInitialized)
	require.ErrorIs(t, m.Connect(context.Background(), false), ErrNotInitialized)
}

func TestConnectSuccess(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	var notified []string
	m.OnAddressChange(func(address string) { notified = append(notified, address) })

	require.NoError(t, m.Connect(context.Background(), false))
	assert.Equal(t, StateConnected, m.State())
	assert.True(t, m.Connected())
	assert.Equal(t, "addr", m.Address())
	assert.Empty(t, m.LastError())
	assert.Equal(t, []string{"addr"}, notified)
}

func TestConnectWhileConnectedIsNoop(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Connect(context.Background(), false))

	require.NoError(t, m.Connect(context.Background(), false))
	assert.Equal(t, 1, p.connects)
}

func TestConnectRetriesTimeoutsOnly(t *testing.T) {
	p := &fakeProvider{
		mode:      model.ModeExtension,
		available: true,
		connectFn: func(ctx context.Context, onlyIfTrusted bool) (any, error) {
			return nil, context.DeadlineExceeded
		},
	}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	err := m.Connect(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, 3, p.connects)
	assert.Equal(t, StateIdle, m.State())
	assert.NotEmpty(t, m.LastError())
}

func TestConnectRejectionNeverRetried(t *testing.T) {
	p := &fakeProvider{
		mode:      model.ModeExtension,
		available: true,
		connectFn: func(ctx context.Context, onlyIfTrusted bool) (any, error) {
			return nil, ErrUserRejected
		},
	}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	err := m.Connect(context.Background(), false)
	require.ErrorIs(t, err, ErrUserRejected)
	assert.Equal(t, 1, p.connects)
	assert.Equal(t, StateIdle, m.State())
}

func TestConnectRecoversOnRetry(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	p.connectFn = func(ctx context.Context, onlyIfTrusted bool) (any, error) {
		if p.connects < 3 {
			return nil, context.DeadlineExceeded
		}
		return "addr", nil
	}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.Connect(context.Background(), false))
	assert.Equal(t, 3, p.connects)
	assert.Equal(t, "addr", m.Address())
}

func TestSilentConnectSingleAttemptAndQuietFailure(t *testing.T) {
	p := &fakeProvider{
		mode:      model.ModeExtension,
		available: true,
		connectFn: func(ctx context.Context, onlyIfTrusted bool) (any, error) {
			assert.True(t, onlyIfTrusted)
			return nil, ErrNoTrustedSession
		},
	}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	err := m.Connect(context.Background(), true)
	require.ErrorIs(t, err, ErrNoTrustedSession)
	assert.Equal(t, 1, p.connects)
	assert.Empty(t, m.LastError())
}

func TestConnectOnMobileWithoutApp(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))
	m.SetMobile("ios", false)

	err := m.Connect(context.Background(), false)
	require.ErrorIs(t, err, ErrAppNotInstalled)
	assert.Equal(t, 0, p.connects)
	assert.NotEmpty(t, m.LastError())
}

func TestStoreURLPerPlatform(t *testing.T) {
	cfg := testWalletConfig()
	cfg.IOSStoreURL = "https://apps.example/ios"
	cfg.AndroidStoreURL = "https://play.example/android"
	m := NewManager(cfg, &fakeProvider{mode: model.ModeExtension, available: true})

	assert.Empty(t, m.StoreURL())
	m.SetMobile("ios", false)
	assert.Equal(t, "https://apps.example/ios", m.StoreURL())
	m.SetMobile("android", false)
	assert.Equal(t, "https://play.example/android", m.StoreURL())
}

func TestDisconnect(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Connect(context.Background(), false))

	var notified []string
	m.OnAddressChange(func(address string) { notified = append(notified, address) })

	require.NoError(t, m.Disconnect(context.Background()))
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.Address())
	assert.Equal(t, []string{""}, notified)
}

func TestDisconnectToleratesNotConnected(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true, disconnect: ErrNotConnected}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))
	require.NoError(t, m.Connect(context.Background(), false))

	require.NoError(t, m.Disconnect(context.Background()))
	assert.Equal(t, StateIdle, m.State())
	assert.Empty(t, m.Address())
}

func TestDisconnectWhileIdleIsNoop(t *testing.T) {
	p := &fakeProvider{mode: model.ModeExtension, available: true}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.Disconnect(context.Background()))
	assert.Equal(t, 0, p.disconnects)
}

func TestHandleCallbackAlwaysReturnsFeatureRoute(t *testing.T) {
	rejected := &fakeProvider{
		mode:      model.ModeExtension,
		available: true,
		connectFn: func(ctx context.Context, onlyIfTrusted bool) (any, error) {
			return nil, ErrUserRejected
		},
	}
	m := newTestManager(rejected)
	require.NoError(t, m.Init(context.Background()))

	route, err := m.HandleCallback(context.Background())
	assert.Equal(t, "/raffle", route)
	require.ErrorIs(t, err, ErrUserRejected)

	ok := &fakeProvider{mode: model.ModeExtension, available: true}
	m = newTestManager(ok)
	require.NoError(t, m.Init(context.Background()))

	route, err = m.HandleCallback(context.Background())
	assert.Equal(t, "/raffle", route)
	require.NoError(t, err)
	assert.Equal(t, "addr", m.Address())
}

func TestConnectEmptyAddressIsNoTrustedSession(t *testing.T) {
	p := &fakeProvider{
		mode:      model.ModeExtension,
		available: true,
		connectFn: func(ctx context.Context, onlyIfTrusted bool) (any, error) {
			return "", nil
		},
	}
	m := newTestManager(p)
	require.NoError(t, m.Init(context.Background()))

	err := m.Connect(context.Background(), true)
	require.ErrorIs(t, err, ErrNoTrustedSession)
	assert.False(t, m.Connected())
}
