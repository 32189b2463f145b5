package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/repository"
	"github.com/samimhm/simio-gateway/internal/wallet"
)

// SessionStore is the persistence slice for gateway sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	TouchSession(ctx context.Context, id uuid.UUID) error
	SetSessionWallet(ctx context.Context, id uuid.UUID, address *string, mode model.ConnectionMode, trusted bool) error
	SetSessionEmbeddedKey(ctx context.Context, id uuid.UUID, key string) error
	SetPostInstallRedirect(ctx context.Context, id uuid.UUID, path *string) error
	DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConnectParams carry what the browser knows about its environment.
type ConnectParams struct {
	Extension    bool   `json:"extension"`
	Silent       bool   `json:"silent"`
	Platform     string `json:"platform"` // "", "ios", "android"
	AppInstalled bool   `json:"app_installed"`
}

// ConnectResult is the outcome handed back to the page.
type ConnectResult struct {
	Address  string               `json:"address,omitempty"`
	Mode     model.ConnectionMode `json:"mode"`
	StoreURL string               `json:"store_url,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type managerEntry struct {
	manager    *wallet.Manager
	bridge     *wallet.BridgeProvider
	lastAccess time.Time
}

// SessionService owns the per-session wallet managers. One manager per
// logical session; the address on it changes only through connect and
// disconnect, and every change fans out to the registered listeners.
type SessionService struct {
	cfg       *config.Config
	store     SessionStore
	affiliate *AffiliateService
	sender    wallet.TxSender

	mu      sync.Mutex
	entries map[uuid.UUID]*managerEntry
}

func NewSessionService(cfg *config.Config, store SessionStore, affiliate *AffiliateService, sender wallet.TxSender) *SessionService {
	return &SessionService{
		cfg:       cfg,
		store:     store,
		affiliate: affiliate,
		sender:    sender,
		entries:   make(map[uuid.UUID]*managerEntry),
	}
}

// EnsureSession loads the session for id, creating a fresh one when the id
// is unknown or absent.
func (s *SessionService) EnsureSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	if id != uuid.Nil {
		session, err := s.store.GetSession(ctx, id)
		if err == nil {
			_ = s.store.TouchSession(ctx, id)
			return session, nil
		}
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return nil, err
		}
	}

	session := &model.Session{
		ID:             uuid.New(),
		ConnectionMode: model.ModeNone,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) entry(session *model.Session) *managerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[session.ID]; ok {
		e.lastAccess = time.Now()
		return e
	}

	bridge := wallet.NewBridgeProvider()
	if session.Trusted && session.ConnectionMode == model.ModeExtension && session.Address() != "" {
		bridge.Announce(true)
		bridge.SetTrustedAddress(session.Address())
	}

	// The embedded wallet is restored from the session's stored key so its
	// address survives a restart; a fresh key is generated and persisted
	// otherwise.
	var embedded *wallet.EmbeddedProvider
	if session.EmbeddedKey != nil {
		restored, err := wallet.NewEmbeddedProviderFromKey(*session.EmbeddedKey, s.sender)
		if err != nil {
			log.Printf("[Session] Invalid stored embedded key for %s: %v", session.ID, err)
		} else {
			embedded = restored
		}
	}
	if embedded == nil {
		embedded = wallet.NewEmbeddedProvider(s.sender)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.store.SetSessionEmbeddedKey(ctx, session.ID, embedded.PrivateKey()); err != nil {
			log.Printf("[Session] Failed to store embedded key for %s: %v", session.ID, err)
		}
		cancel()
	}

	manager := wallet.NewManager(s.cfg.Wallet, bridge, embedded)
	sessionID := session.ID
	manager.OnAddressChange(func(address string) {
		s.onAddressChange(sessionID, manager.Mode(), address)
	})

	e := &managerEntry{manager: manager, bridge: bridge, lastAccess: time.Now()}
	s.entries[session.ID] = e
	return e
}

// onAddressChange persists the transition and kicks the address-dependent
// flows. It runs for connects and disconnects alike.
func (s *SessionService) onAddressChange(sessionID uuid.UUID, mode model.ConnectionMode, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if address == "" {
		if err := s.store.SetSessionWallet(ctx, sessionID, nil, model.ModeNone, false); err != nil {
			log.Printf("[Session] Failed to clear wallet for %s: %v", sessionID, err)
		}
		return
	}

	if err := s.store.SetSessionWallet(ctx, sessionID, &address, mode, true); err != nil {
		log.Printf("[Session] Failed to store wallet for %s: %v", sessionID, err)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Printf("[Session] Failed to reload session %s: %v", sessionID, err)
		return
	}
	if err := s.affiliate.TrackConnection(ctx, session, address); err != nil {
		log.Printf("[Session] Affiliate tracking for %s failed: %v", sessionID, err)
	}
}

// Manager returns the session's wallet manager, initializing it on first
// use. A session whose initialization failed keeps failing until the entry
// is rebuilt, mirroring a page reload.
func (s *SessionService) Manager(ctx context.Context, session *model.Session) (*wallet.Manager, error) {
	e := s.entry(session)
	if err := e.manager.Init(ctx); err != nil {
		return nil, err
	}
	return e.manager, nil
}

// Connect runs a connect attempt for the session.
func (s *SessionService) Connect(ctx context.Context, session *model.Session, params ConnectParams) (*ConnectResult, error) {
	e := s.entry(session)
	if params.Extension {
		e.bridge.Announce(true)
	}
	e.manager.SetMobile(params.Platform, params.AppInstalled)

	if err := e.manager.Init(ctx); err != nil {
		return &ConnectResult{Mode: model.ModeNone, Error: e.manager.LastError()}, err
	}

	err := e.manager.Connect(ctx, params.Silent)
	if err != nil {
		result := &ConnectResult{Mode: e.manager.Mode(), Error: e.manager.LastError()}
		if errors.Is(err, wallet.ErrAppNotInstalled) {
			redirect := s.cfg.Wallet.FeatureRoute
			if perr := s.store.SetPostInstallRedirect(ctx, session.ID, &redirect); perr != nil {
				log.Printf("[Session] Failed to store post-install redirect: %v", perr)
			}
			result.StoreURL = e.manager.StoreURL()
		}
		return result, err
	}

	return &ConnectResult{
		Address: e.manager.Address(),
		Mode:    e.manager.Mode(),
	}, nil
}

func (s *SessionService) Disconnect(ctx context.Context, session *model.Session) error {
	e := s.entry(session)
	return e.manager.Disconnect(ctx)
}

// walletResultError maps a browser-reported failure message onto the wallet
// sentinels; an explicit rejection must come through as such so it is never
// retried.
func walletResultError(errMsg string) error {
	if strings.Contains(strings.ToLower(errMsg), "reject") {
		return wallet.ErrUserRejected
	}
	return errors.New(errMsg)
}

// CompleteConnect delivers the browser-reported wallet result to a pending
// bridge connect.
func (s *SessionService) CompleteConnect(session *model.Session, address string, errMsg string) {
	e := s.entry(session)
	if errMsg != "" {
		e.bridge.CompleteConnect(wallet.ConnectResult{Err: walletResultError(errMsg)})
		return
	}
	e.bridge.CompleteConnect(wallet.ConnectResult{Address: address})
}

// PendingTransaction exposes the base64 transaction waiting for the session's
// browser wallet to sign, if one is pending.
func (s *SessionService) PendingTransaction(session *model.Session) (string, bool) {
	e := s.entry(session)
	return e.bridge.PendingTransaction()
}

// CompleteSign delivers the browser wallet's signing result to a pending
// bridge submission, the counterpart of CompleteConnect for the join flow.
func (s *SessionService) CompleteSign(session *model.Session, signature string, errMsg string) error {
	e := s.entry(session)
	if errMsg != "" {
		e.bridge.CompleteSign(solana.Signature{}, walletResultError(errMsg))
		return nil
	}

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	e.bridge.CompleteSign(sig, nil)
	return nil
}

// HandleCallback finishes a redirect-based connect: the user always lands
// back on the feature route, with the error preserved when the connect
// failed.
func (s *SessionService) HandleCallback(ctx context.Context, session *model.Session) (string, error) {
	e := s.entry(session)
	if err := e.manager.Init(ctx); err != nil {
		return s.cfg.Wallet.FeatureRoute, err
	}
	return e.manager.HandleCallback(ctx)
}

// ActiveParticipant returns the first connected wallet address that
// isParticipant reports as being in the current round, or "" when none is.
// The poller uses this to pick its cadence.
func (s *SessionService) ActiveParticipant(isParticipant func(address string) bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !e.manager.Connected() {
			continue
		}
		if addr := e.manager.Address(); addr != "" && isParticipant(addr) {
			return addr
		}
	}
	return ""
}

// RunReaper expires idle sessions and prunes their in-memory managers.
func (s *SessionService) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(config.SessionReapInterval)
	defer ticker.Stop()

	log.Printf("[Reaper] Started, every %v", config.SessionReapInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Reaper] Stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Session.TTL)
			deleted, err := s.store.DeleteIdleSessions(ctx, cutoff)
			if err != nil {
				log.Printf("[Reaper] Failed to delete idle sessions: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("[Reaper] Removed %d idle sessions", deleted)
			}

			s.mu.Lock()
			for id, e := range s.entries {
				if e.lastAccess.Before(cutoff) && !e.manager.Connected() {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
