package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/model"
)

type State string

const (
	StateUninitialized  State = "uninitialized"
	StateInitializing   State = "initializing"
	StateExtensionReady State = "extension_ready"
	StateEmbeddedReady  State = "embedded_ready"
	StateInitFailed     State = "init_failed"
	StateIdle           State = "idle"
	StateConnecting     State = "connecting"
	StateConnected      State = "connected"
	StateDisconnecting  State = "disconnecting"
)

// Manager owns one session's wallet connection. The address is mutated only
// through the connect and disconnect transitions here; everything else reads.
type Manager struct {
	mu        sync.Mutex
	cfg       config.WalletConfig
	providers []Provider
	provider  Provider
	state     State
	address   string
	lastError string
	listeners []func(address string)

	mobilePlatform string // "", "ios", "android"
	appInstalled   bool

	sleep func(time.Duration)
}

func NewManager(cfg config.WalletConfig, providers ...Provider) *Manager {
	return &Manager{
		cfg:       cfg,
		providers: providers,
		state:     StateUninitialized,
		sleep:     time.Sleep,
	}
}

// SetMobile records the caller's platform so failed connects can offer an
// install-the-app redirect.
func (m *Manager) SetMobile(platform string, appInstalled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mobilePlatform = platform
	m.appInstalled = appInstalled
}

// Init checks the providers in order and settles on the first available one.
// A failed initialization is fatal for this manager; callers must build a
// new one, mirroring a page reload.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		if m.state == StateInitFailed {
			return ErrNotInitialized
		}
		return nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	for _, p := range m.providers {
		if !p.Available() {
			continue
		}
		m.mu.Lock()
		m.provider = p
		if p.Mode() == model.ModeExtension {
			m.state = StateExtensionReady
		} else {
			m.state = StateEmbeddedReady
		}
		m.state = StateIdle
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	m.state = StateInitFailed
	m.lastError = "Failed to initialize wallet provider."
	m.mu.Unlock()
	return ErrNotInitialized
}

// Connect runs the connecting transition. Silent connects only resume a
// previously trusted connection and never prompt; their failures stay quiet.
// Timeouts retry up to the configured attempt count with fixed backoff;
// explicit rejection never retries.
func (m *Manager) Connect(ctx context.Context, silent bool) error {
	m.mu.Lock()
	switch m.state {
	case StateConnecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateUninitialized, StateInitializing, StateInitFailed:
		m.mu.Unlock()
		return ErrNotInitialized
	}

	if !silent && m.mobilePlatform != "" && !m.appInstalled && m.provider.Mode() == model.ModeExtension {
		m.lastError = "Please install the Phantom app to continue."
		m.mu.Unlock()
		return ErrAppNotInstalled
	}

	provider := m.provider
	m.state = StateConnecting
	m.mu.Unlock()

	attempts := m.cfg.ConnectRetries
	if attempts < 1 || silent {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var result any
		result, err = m.attempt(ctx, provider, silent)
		if err == nil {
			address := NormalizeAddress(result)
			if address == "" {
				err = ErrNoTrustedSession
			} else {
				m.becomeConnected(address)
				return nil
			}
		}
		if !isTransient(err) || attempt == attempts {
			break
		}
		m.sleep(m.cfg.RetryBackoff)
	}

	m.mu.Lock()
	m.state = StateIdle
	if !silent {
		m.lastError = "Failed to connect wallet. Please try again."
	}
	m.mu.Unlock()
	return err
}

func (m *Manager) attempt(ctx context.Context, provider Provider, silent bool) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	result, err := provider.Connect(attemptCtx, silent)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, ErrConnectTimeout
	}
	return result, err
}

func isTransient(err error) bool {
	return errors.Is(err, ErrConnectTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) becomeConnected(address string) {
	m.mu.Lock()
	m.state = StateConnected
	m.address = address
	m.lastError = ""
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(address)
	}
}

// Disconnect tolerates a provider that already reports "not connected";
// that is a success, not an error.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return nil
	}
	provider := m.provider
	m.state = StateDisconnecting
	m.mu.Unlock()

	err := provider.Disconnect(ctx)
	if err != nil && !errors.Is(err, ErrNotConnected) {
		m.mu.Lock()
		m.state = StateConnected
		m.lastError = "Failed to disconnect wallet"
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.state = StateIdle
	m.address = ""
	m.lastError = ""
	listeners := m.listeners
	m.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
	return nil
}

// HandleCallback finishes a redirect-based connect. The returned route is
// always the feature route so the user is never stranded on the callback
// page; a connect error is preserved for display.
func (m *Manager) HandleCallback(ctx context.Context) (string, error) {
	err := m.Connect(ctx, false)
	return m.cfg.FeatureRoute, err
}

// OnAddressChange registers a listener fired whenever the connected address
// changes, including the empty address on disconnect. Address-dependent data
// (balances, affiliate state) hangs off these.
func (m *Manager) OnAddressChange(fn func(address string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

func (m *Manager) Mode() model.ConnectionMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.provider == nil {
		return model.ModeNone
	}
	return m.provider.Mode()
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Manager) Provider() Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

// StoreURL returns the app store link for the session's platform, or "" when
// the install redirect does not apply.
func (m *Manager) StoreURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.mobilePlatform {
	case "ios":
		return m.cfg.IOSStoreURL
	case "android":
		return m.cfg.AndroidStoreURL
	}
	return ""
}
