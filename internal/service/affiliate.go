package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/repository"
)

// AffiliateStore is the persistence slice the affiliate flow needs.
type AffiliateStore interface {
	UpsertTag(ctx context.Context, tag *model.AffiliateTag) error
	GetTag(ctx context.Context, sessionID uuid.UUID) (*model.AffiliateTag, error)
	DeleteTag(ctx context.Context, sessionID uuid.UUID) error
	MarkSessionTracked(ctx context.Context, sessionID uuid.UUID) error
	GetConsent(ctx context.Context, sessionID uuid.UUID) (*model.Consent, error)
}

// AffiliateBackend is the slice of the upstream client the flow calls.
type AffiliateBackend interface {
	AffiliateStatus(ctx context.Context, address string) (*model.AffiliateRecord, error)
	AffiliateHistory(ctx context.Context, address string) ([]model.RewardEntry, error)
	RegisterAffiliate(ctx context.Context, address string) (*model.AffiliateRecord, error)
	TrackAffiliate(ctx context.Context, participantAddress, affiliateID string) error
}

type AffiliateService struct {
	store   AffiliateStore
	backend AffiliateBackend
	now     func() time.Time
}

func NewAffiliateService(store AffiliateStore, backend AffiliateBackend) *AffiliateService {
	return &AffiliateService{
		store:   store,
		backend: backend,
		now:     time.Now,
	}
}

// CaptureVisit records a referral code seen on a visit. A malformed or
// absent code is the normal case and is ignored without error.
func (s *AffiliateService) CaptureVisit(ctx context.Context, sessionID uuid.UUID, code string) error {
	if !model.ValidAffiliateCode(code) {
		return nil
	}
	return s.store.UpsertTag(ctx, &model.AffiliateTag{
		SessionID:  sessionID,
		Code:       code,
		CapturedAt: s.now(),
	})
}

// ActiveTag returns the session's referral tag if one exists and has not
// aged out. Expiry is enforced here, on read: an expired tag is purged and
// reported as absent.
func (s *AffiliateService) ActiveTag(ctx context.Context, sessionID uuid.UUID) (*model.AffiliateTag, error) {
	tag, err := s.store.GetTag(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if tag.Expired(s.now()) {
		if err := s.store.DeleteTag(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return tag, nil
}

// TrackConnection propagates the session's referral attribution once a
// wallet address is known. The session's tracked flag makes the call
// once-per-session: a reconnect after a successful track is a no-op.
func (s *AffiliateService) TrackConnection(ctx context.Context, session *model.Session, address string) error {
	if session.AffiliateTracked || address == "" {
		return nil
	}

	tag, err := s.ActiveTag(ctx, session.ID)
	if err != nil {
		return err
	}
	if tag == nil {
		return nil
	}

	// With cookies accepted the upstream's own affiliate cookie carries the
	// attribution; the explicit track call is the cookieless fallback.
	if consent, err := s.store.GetConsent(ctx, session.ID); err == nil && consent.Value == model.ConsentAccepted {
		if err := s.store.MarkSessionTracked(ctx, session.ID); err != nil {
			log.Printf("[Affiliate] Failed to persist tracked flag for %s: %v", session.ID, err)
		}
		session.AffiliateTracked = true
		return nil
	}

	if err := s.backend.TrackAffiliate(ctx, address, tag.Code); err != nil {
		return err
	}

	if err := s.store.MarkSessionTracked(ctx, session.ID); err != nil {
		log.Printf("[Affiliate] Failed to persist tracked flag for %s: %v", session.ID, err)
	}
	session.AffiliateTracked = true
	return nil
}

func (s *AffiliateService) Status(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	return s.backend.AffiliateStatus(ctx, address)
}

func (s *AffiliateService) History(ctx context.Context, address string) ([]model.RewardEntry, error) {
	return s.backend.AffiliateHistory(ctx, address)
}

func (s *AffiliateService) Register(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	return s.backend.RegisterAffiliate(ctx, address)
}
