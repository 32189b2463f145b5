package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/model"
)

// RaffleSource is the slice of the backend the poller reads.
type RaffleSource interface {
	RaffleStatus(ctx context.Context) (*model.RaffleStatus, error)
	RaffleHistory(ctx context.Context) ([]model.RaffleRound, error)
}

// PollerNotifier receives backend-connectivity transitions and round
// resolutions. May be a nil bot; all methods must tolerate that.
type PollerNotifier interface {
	BackendUnreachable(err error)
	BackendRecovered()
	RoundResolved(round model.RaffleRound)
}

// StatusPoller mirrors the backend's round status and history into a local
// cache. The cache is read-only truth from the backend; a failed fetch keeps
// the stale copy and the loop never stops. Cadence adapts: polling runs
// faster while the connected address is in the current round.
type StatusPoller struct {
	source    RaffleSource
	notifier  PollerNotifier
	addressFn func() string

	activeInterval time.Duration
	idleInterval   time.Duration

	mu          sync.RWMutex
	status      *model.RaffleStatus
	history     []model.RaffleRound
	unreachable bool
	hasData     bool
	lastRound   int
	running     bool
}

func NewStatusPoller(source RaffleSource, notifier PollerNotifier, addressFn func() string) *StatusPoller {
	if addressFn == nil {
		addressFn = func() string { return "" }
	}
	return &StatusPoller{
		source:         source,
		notifier:       notifier,
		addressFn:      addressFn,
		activeInterval: config.ActivePollInterval,
		idleInterval:   config.IdlePollInterval,
	}
}

func (p *StatusPoller) Start(ctx context.Context) {
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	log.Printf("[Poller] Started, %v active / %v idle", p.activeInterval, p.idleInterval)

	p.tick(ctx)
	timer := time.NewTimer(p.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			log.Println("[Poller] Stopped")
			return
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.nextInterval())
		}
	}
}

// nextInterval picks the cadence for the next cycle from the cache as it
// stands now: participation in the current round means the short interval.
func (p *StatusPoller) nextInterval() time.Duration {
	if p.IsParticipant(p.addressFn()) {
		return p.activeInterval
	}
	return p.idleInterval
}

// tick fetches status and history concurrently. Ticks are independent; a
// slow response may be overwritten by a later one (last-write-wins, the
// cache is a mirror, not a log).
func (p *StatusPoller) tick(ctx context.Context) {
	var (
		wg         sync.WaitGroup
		status     *model.RaffleStatus
		history    []model.RaffleRound
		statusErr  error
		historyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		status, statusErr = p.source.RaffleStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		history, historyErr = p.source.RaffleHistory(ctx)
	}()
	wg.Wait()

	// Teardown guard: never apply a late result after cancellation.
	if ctx.Err() != nil {
		return
	}

	if statusErr != nil || historyErr != nil {
		err := statusErr
		if err == nil {
			err = historyErr
		}
		p.markUnreachable(err)
		return
	}

	p.apply(status, history)
}

func (p *StatusPoller) markUnreachable(err error) {
	p.mu.Lock()
	wasReachable := !p.unreachable
	p.unreachable = true
	p.mu.Unlock()

	if wasReachable {
		log.Printf("[Poller] Backend unreachable: %v", err)
		if p.notifier != nil {
			p.notifier.BackendUnreachable(err)
		}
	}
}

func (p *StatusPoller) apply(status *model.RaffleStatus, history []model.RaffleRound) {
	p.mu.Lock()
	recovered := p.unreachable
	p.unreachable = false
	p.status = status
	p.history = history
	p.hasData = true

	var resolved *model.RaffleRound
	if latest := latestRound(history); latest != nil {
		if p.lastRound != 0 && latest.Round > p.lastRound {
			resolved = latest
		}
		p.lastRound = latest.Round
	}
	p.mu.Unlock()

	if recovered {
		log.Println("[Poller] Backend reachable again")
		if p.notifier != nil {
			p.notifier.BackendRecovered()
		}
	}
	if resolved != nil && p.notifier != nil {
		p.notifier.RoundResolved(*resolved)
	}
}

func latestRound(history []model.RaffleRound) *model.RaffleRound {
	var latest *model.RaffleRound
	for i := range history {
		if latest == nil || history[i].Round > latest.Round {
			latest = &history[i]
		}
	}
	return latest
}

// Snapshot returns a copy of the cached state. hasData distinguishes "never
// fetched" from an empty round.
func (p *StatusPoller) Snapshot() (status *model.RaffleStatus, history []model.RaffleRound, unreachable, hasData bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.status != nil {
		copied := *p.status
		copied.Participants = append([]string(nil), p.status.Participants...)
		status = &copied
	}
	history = append([]model.RaffleRound(nil), p.history...)
	return status, history, p.unreachable, p.hasData
}

func (p *StatusPoller) Unreachable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.unreachable
}

func (p *StatusPoller) IsParticipant(address string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status != nil && p.status.HasParticipant(address)
}

// PrizeRank projects the cached history onto an address: the rank it holds
// in the most recent resolved round, or -1. Pure read, never written back.
func (p *StatusPoller) PrizeRank(address string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	latest := latestRound(p.history)
	if latest == nil {
		return -1
	}
	return model.PrizeRank(latest.Winners, address)
}
