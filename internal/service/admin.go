package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samimhm/simio-gateway/internal/upstream"
)

// ErrNotAdmin means the backend rejected the wallet as an admin. Rendered
// as an access-restricted view, never as a transport error.
var ErrNotAdmin = errors.New("access restricted")

// AdminService proxies the backend's admin namespace on behalf of the
// connected wallet. Payloads pass through opaquely; only the authorization
// outcome is interpreted here.
type AdminService struct {
	backend *upstream.Client
}

func NewAdminService(backend *upstream.Client) *AdminService {
	return &AdminService{backend: backend}
}

func adminErr(err error) error {
	if errors.Is(err, upstream.ErrUnauthorized) {
		return ErrNotAdmin
	}
	return err
}

func (s *AdminService) Dashboard(ctx context.Context, wallet string) (json.RawMessage, error) {
	payload, err := s.backend.AdminDashboard(ctx, wallet)
	return payload, adminErr(err)
}

func (s *AdminService) Affiliates(ctx context.Context, wallet string) (json.RawMessage, error) {
	payload, err := s.backend.AdminAffiliates(ctx, wallet)
	return payload, adminErr(err)
}

func (s *AdminService) Rounds(ctx context.Context, wallet string) (json.RawMessage, error) {
	payload, err := s.backend.AdminRounds(ctx, wallet)
	return payload, adminErr(err)
}

func (s *AdminService) Export(ctx context.Context, wallet, exportType string) (json.RawMessage, error) {
	switch exportType {
	case "affiliates", "transactions", "rounds":
	default:
		return nil, fmt.Errorf("unknown export type %q", exportType)
	}
	payload, err := s.backend.AdminExport(ctx, wallet, exportType)
	return payload, adminErr(err)
}

func (s *AdminService) RefundParticipant(ctx context.Context, wallet, participant string) error {
	return adminErr(s.backend.AdminRefundParticipant(ctx, wallet, participant))
}

func (s *AdminService) RefundCurrentRound(ctx context.Context, wallet string) error {
	return adminErr(s.backend.AdminRefundCurrentRound(ctx, wallet))
}

func (s *AdminService) RefundRound(ctx context.Context, wallet string, round int) error {
	return adminErr(s.backend.AdminRefundRound(ctx, wallet, round))
}

func (s *AdminService) Transfer(ctx context.Context, wallet, affiliateWallet string, amount float64) error {
	return adminErr(s.backend.AdminTransfer(ctx, wallet, affiliateWallet, amount))
}

func (s *AdminService) DeleteAffiliate(ctx context.Context, wallet, affiliateID string) error {
	return adminErr(s.backend.AdminDeleteAffiliate(ctx, wallet, affiliateID))
}
