package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samimhm/simio-gateway/internal/chain"
	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/repository"
	"github.com/samimhm/simio-gateway/internal/service"
)

type stubSessionStore struct{}

func (stubSessionStore) CreateSession(ctx context.Context, session *model.Session) error { return nil }
func (stubSessionStore) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return nil, repository.ErrSessionNotFound
}
func (stubSessionStore) TouchSession(ctx context.Context, id uuid.UUID) error { return nil }
func (stubSessionStore) SetSessionWallet(ctx context.Context, id uuid.UUID, address *string, mode model.ConnectionMode, trusted bool) error {
	return nil
}
func (stubSessionStore) SetSessionEmbeddedKey(ctx context.Context, id uuid.UUID, key string) error {
	return nil
}
func (stubSessionStore) SetPostInstallRedirect(ctx context.Context, id uuid.UUID, path *string) error {
	return nil
}
func (stubSessionStore) DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubAffiliateStore struct{}

func (stubAffiliateStore) UpsertTag(ctx context.Context, tag *model.AffiliateTag) error { return nil }
func (stubAffiliateStore) GetTag(ctx context.Context, sessionID uuid.UUID) (*model.AffiliateTag, error) {
	return nil, repository.ErrTagNotFound
}
func (stubAffiliateStore) DeleteTag(ctx context.Context, sessionID uuid.UUID) error { return nil }
func (stubAffiliateStore) MarkSessionTracked(ctx context.Context, sessionID uuid.UUID) error {
	return nil
}
func (stubAffiliateStore) GetConsent(ctx context.Context, sessionID uuid.UUID) (*model.Consent, error) {
	return nil, repository.ErrConsentNotFound
}

type stubAffiliateBackend struct{}

func (stubAffiliateBackend) AffiliateStatus(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	return &model.AffiliateRecord{}, nil
}
func (stubAffiliateBackend) AffiliateHistory(ctx context.Context, address string) ([]model.RewardEntry, error) {
	return nil, nil
}
func (stubAffiliateBackend) RegisterAffiliate(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	return &model.AffiliateRecord{}, nil
}
func (stubAffiliateBackend) TrackAffiliate(ctx context.Context, participantAddress, affiliateID string) error {
	return nil
}

type stubRaffleSource struct {
	status *model.RaffleStatus
}

func (s stubRaffleSource) RaffleStatus(ctx context.Context) (*model.RaffleStatus, error) {
	return s.status, nil
}
func (s stubRaffleSource) RaffleHistory(ctx context.Context) ([]model.RaffleRound, error) {
	return nil, nil
}

type stubChain struct {
	balanceErr error
}

func (c stubChain) TokenBalance(ctx context.Context, owner string) (uint64, error) {
	if c.balanceErr != nil {
		return 0, c.balanceErr
	}
	return model.JoinStakeTokens, nil
}
func (c stubChain) SubmitJoin(ctx context.Context, signer chain.Signer, owner string) (solana.Signature, error) {
	return solana.Signature{}, nil
}

type stubJoinStore struct {
	attempts []model.JoinAttempt
}

func (s *stubJoinStore) CreateJoinAttempt(ctx context.Context, attempt *model.JoinAttempt) error {
	return nil
}
func (s *stubJoinStore) CompleteJoinAttempt(ctx context.Context, id uuid.UUID, signature string) error {
	return nil
}
func (s *stubJoinStore) FailJoinAttempt(ctx context.Context, id uuid.UUID, errMsg string) error {
	return nil
}
func (s *stubJoinStore) GetJoinAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.JoinAttempt, error) {
	return s.attempts, nil
}

type stubSender struct{}

func (stubSender) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Wallet: config.WalletConfig{
			ConnectTimeout: 100 * time.Millisecond,
			ConnectRetries: 3,
			RetryBackoff:   time.Millisecond,
			FeatureRoute:   "/raffle",
		},
		Session: config.SessionConfig{
			CookieName: "simio_session",
			TTL:        time.Hour,
		},
	}
}

// sessionApp mounts a handler with the session preloaded into the request
// context, the way the session middleware would.
func sessionApp(session *model.Session, route func(*fiber.Ctx) error) *fiber.App {
	app := fiber.New()
	app.Get("/test", func(c *fiber.Ctx) error {
		c.Locals(middleware.SessionKey, session)
		return route(c)
	})
	return app
}

func TestRaffleStatusServesCacheWhenBalanceLookupFails(t *testing.T) {
	cfg := testConfig()
	affiliateSvc := service.NewAffiliateService(stubAffiliateStore{}, stubAffiliateBackend{})
	sessions := service.NewSessionService(cfg, stubSessionStore{}, affiliateSvc, stubSender{})

	poller := service.NewStatusPoller(stubRaffleSource{
		status: &model.RaffleStatus{Round: 9, Participants: []string{"someone-else"}},
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go poller.Start(ctx)
	require.Eventually(t, func() bool {
		_, _, _, hasData := poller.Snapshot()
		return hasData
	}, time.Second, 5*time.Millisecond)

	raffleSvc := service.NewRaffleService(poller, stubChain{
		balanceErr: errors.New("rpc: connection refused"),
	}, sessions, &stubJoinStore{}, nil)

	h := New(cfg, nil, sessions, raffleSvc, affiliateSvc, nil, poller)

	// Connect the session's embedded wallet so the gate reaches the
	// balance lookup.
	session := &model.Session{ID: uuid.New()}
	_, err := sessions.Connect(context.Background(), session, service.ConnectParams{})
	require.NoError(t, err)

	app := sessionApp(session, h.GetRaffleStatus)
	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	// The cached round state is intact; only the gate degraded.
	assert.Equal(t, float64(9), body["round"])
	assert.Equal(t, true, body["has_data"])
	assert.Equal(t, false, body["can_join"])
	assert.Contains(t, body, "gate_error")
}

func TestGetJoinAttempts(t *testing.T) {
	cfg := testConfig()
	affiliateSvc := service.NewAffiliateService(stubAffiliateStore{}, stubAffiliateBackend{})
	sessions := service.NewSessionService(cfg, stubSessionStore{}, affiliateSvc, stubSender{})
	poller := service.NewStatusPoller(stubRaffleSource{}, nil, nil)

	session := &model.Session{ID: uuid.New()}
	signature := "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tp"
	store := &stubJoinStore{attempts: []model.JoinAttempt{{
		ID:        uuid.New(),
		SessionID: session.ID,
		Address:   "wallet1",
		Signature: &signature,
		Status:    model.JoinStatusConfirmed,
	}}}

	raffleSvc := service.NewRaffleService(poller, stubChain{}, sessions, store, nil)
	h := New(cfg, nil, sessions, raffleSvc, affiliateSvc, nil, poller)

	app := sessionApp(session, h.GetJoinAttempts)
	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Attempts []model.JoinAttempt `json:"attempts"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Attempts, 1)
	assert.Equal(t, "wallet1", body.Attempts[0].Address)
	assert.Equal(t, model.JoinStatusConfirmed, body.Attempts[0].Status)
}
