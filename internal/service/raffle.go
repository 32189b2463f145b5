package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/chain"
	"github.com/samimhm/simio-gateway/internal/model"
)

var ErrJoinNotAllowed = errors.New("join not allowed")

// ChainJoiner is the slice of the chain client the raffle flow uses.
type ChainJoiner interface {
	TokenBalance(ctx context.Context, owner string) (uint64, error)
	SubmitJoin(ctx context.Context, signer chain.Signer, owner string) (solana.Signature, error)
}

// JoinStore records transaction submissions.
type JoinStore interface {
	CreateJoinAttempt(ctx context.Context, attempt *model.JoinAttempt) error
	CompleteJoinAttempt(ctx context.Context, id uuid.UUID, signature string) error
	FailJoinAttempt(ctx context.Context, id uuid.UUID, errMsg string) error
	GetJoinAttempts(ctx context.Context, sessionID uuid.UUID) ([]model.JoinAttempt, error)
}

// JoinNotifier hears about failed submissions.
type JoinNotifier interface {
	JoinFailed(address, reason string)
}

// JoinGate is the set of conditions gating the join action. These are
// computed booleans that disable the action, not errors to be thrown.
type JoinGate struct {
	Connected          bool   `json:"connected"`
	Balance            uint64 `json:"balance"`
	AlreadyParticipant bool   `json:"already_participant"`
	BackendDown        bool   `json:"backend_down"`
	InFlight           bool   `json:"in_flight"`
}

func (g JoinGate) Allowed() bool {
	return g.Connected &&
		g.Balance >= model.JoinStakeTokens &&
		!g.AlreadyParticipant &&
		!g.BackendDown &&
		!g.InFlight
}

// Reason names the first failing condition for inline display.
func (g JoinGate) Reason() string {
	switch {
	case !g.Connected:
		return "wallet not connected"
	case g.Balance < model.JoinStakeTokens:
		return "insufficient balance"
	case g.AlreadyParticipant:
		return "already joined this round"
	case g.BackendDown:
		return "raffle backend unreachable"
	case g.InFlight:
		return "submission in progress"
	default:
		return ""
	}
}

type RaffleService struct {
	poller   *StatusPoller
	chain    ChainJoiner
	sessions *SessionService
	store    JoinStore
	notifier JoinNotifier

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

func NewRaffleService(poller *StatusPoller, chainClient ChainJoiner, sessions *SessionService, store JoinStore, notifier JoinNotifier) *RaffleService {
	return &RaffleService{
		poller:   poller,
		chain:    chainClient,
		sessions: sessions,
		store:    store,
		notifier: notifier,
		inFlight: make(map[uuid.UUID]bool),
	}
}

// Gate evaluates the join conditions for a session. Balance is only looked
// up for a connected wallet.
func (s *RaffleService) Gate(ctx context.Context, session *model.Session) (JoinGate, error) {
	gate := JoinGate{
		BackendDown: s.poller.Unreachable(),
		InFlight:    s.isInFlight(session.ID),
	}

	manager, err := s.sessions.Manager(ctx, session)
	if err != nil {
		return gate, nil
	}
	if !manager.Connected() {
		return gate, nil
	}

	address := manager.Address()
	gate.Connected = true
	gate.AlreadyParticipant = s.poller.IsParticipant(address)

	balance, err := s.chain.TokenBalance(ctx, address)
	if err != nil {
		return gate, fmt.Errorf("failed to fetch balance: %w", err)
	}
	gate.Balance = balance
	return gate, nil
}

// Join submits the entry transfer. Each submission is all-or-nothing and
// never retried; a failed join requires the user to click again.
func (s *RaffleService) Join(ctx context.Context, session *model.Session) (string, error) {
	gate, err := s.Gate(ctx, session)
	if err != nil {
		return "", err
	}
	if !gate.Allowed() {
		return "", fmt.Errorf("%w: %s", ErrJoinNotAllowed, gate.Reason())
	}

	if !s.markInFlight(session.ID) {
		return "", fmt.Errorf("%w: submission in progress", ErrJoinNotAllowed)
	}
	defer s.clearInFlight(session.ID)

	manager, err := s.sessions.Manager(ctx, session)
	if err != nil {
		return "", err
	}
	address := manager.Address()

	attempt := &model.JoinAttempt{
		ID:        uuid.New(),
		SessionID: session.ID,
		Address:   address,
		Status:    model.JoinStatusPending,
	}
	if err := s.store.CreateJoinAttempt(ctx, attempt); err != nil {
		return "", err
	}

	signature, err := s.chain.SubmitJoin(ctx, manager.Provider(), address)
	if err != nil {
		if ferr := s.store.FailJoinAttempt(ctx, attempt.ID, err.Error()); ferr != nil {
			log.Printf("[Raffle] Failed to record join failure: %v", ferr)
		}
		if s.notifier != nil {
			s.notifier.JoinFailed(address, err.Error())
		}
		return "", err
	}

	if err := s.store.CompleteJoinAttempt(ctx, attempt.ID, signature.String()); err != nil {
		log.Printf("[Raffle] Failed to record join success: %v", err)
	}
	return signature.String(), nil
}

// Attempts lists the session's transaction submissions, newest first.
func (s *RaffleService) Attempts(ctx context.Context, session *model.Session) ([]model.JoinAttempt, error) {
	return s.store.GetJoinAttempts(ctx, session.ID)
}

func (s *RaffleService) isInFlight(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[sessionID]
}

func (s *RaffleService) markInFlight(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *RaffleService) clearInFlight(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}
