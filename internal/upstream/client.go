package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/samimhm/simio-gateway/internal/model"
)

var (
	// ErrNotRegistered maps the backend's 404 on affiliate lookups; a new
	// wallet simply has no record yet.
	ErrNotRegistered = errors.New("affiliate not registered")

	// ErrUnauthorized is the backend saying "not an admin wallet". It is a
	// different condition from a transport failure.
	ErrUnauthorized = errors.New("not an admin wallet")

	ErrTrackFailed = errors.New("affiliate tracking rejected")
)

// Client talks to the external raffle/affiliate backend. Requests carry the
// cookie jar so the backend's affiliate cookie rides along ("credentials
// included").
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotRegistered
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

func (c *Client) RaffleStatus(ctx context.Context) (*model.RaffleStatus, error) {
	var status model.RaffleStatus
	if err := c.do(ctx, http.MethodGet, "/raffle/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) RaffleHistory(ctx context.Context) ([]model.RaffleRound, error) {
	var payload struct {
		Rounds []model.RaffleRound `json:"rounds"`
	}
	if err := c.do(ctx, http.MethodGet, "/raffle/history", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Rounds, nil
}

func (c *Client) AffiliateStatus(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	var record model.AffiliateRecord
	if err := c.do(ctx, http.MethodGet, "/affiliate/status/"+url.PathEscape(address), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) AffiliateHistory(ctx context.Context, address string) ([]model.RewardEntry, error) {
	var payload struct {
		RewardHistory []model.RewardEntry `json:"rewardHistory"`
	}
	if err := c.do(ctx, http.MethodGet, "/affiliate/history/"+url.PathEscape(address), nil, &payload); err != nil {
		return nil, err
	}
	return payload.RewardHistory, nil
}

func (c *Client) RegisterAffiliate(ctx context.Context, address string) (*model.AffiliateRecord, error) {
	var record model.AffiliateRecord
	body := map[string]string{"walletAddress": address}
	if err := c.do(ctx, http.MethodPost, "/affiliate/register", body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// TrackAffiliate attributes a participant to a referrer. The backend reports
// logical failure in the body, not the status code.
func (c *Client) TrackAffiliate(ctx context.Context, participantAddress, affiliateID string) error {
	body := map[string]string{
		"participantAddress": participantAddress,
		"affiliateId":        affiliateID,
	}
	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/affiliate/track", body, &result); err != nil {
		return err
	}
	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("%w: %s", ErrTrackFailed, result.Error)
		}
		return ErrTrackFailed
	}
	return nil
}

// Admin namespace. Every call passes the connected wallet address as the
// authorization signal; the payloads are proxied opaquely.

func (c *Client) adminPath(path, wallet string) string {
	return path + "?walletAddress=" + url.QueryEscape(wallet)
}

func (c *Client) AdminDashboard(ctx context.Context, wallet string) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.adminPath("/admin/dashboard", wallet), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) AdminAffiliates(ctx context.Context, wallet string) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.adminPath("/admin/affiliates", wallet), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) AdminRounds(ctx context.Context, wallet string) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.adminPath("/admin/rounds", wallet), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) AdminExport(ctx context.Context, wallet, exportType string) (json.RawMessage, error) {
	var payload json.RawMessage
	path := c.adminPath("/admin/export/"+url.PathEscape(exportType), wallet)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) AdminRefundParticipant(ctx context.Context, wallet, participant string) error {
	path := c.adminPath("/admin/participants/"+url.PathEscape(participant)+"/refund", wallet)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) AdminRefundCurrentRound(ctx context.Context, wallet string) error {
	return c.do(ctx, http.MethodPost, c.adminPath("/admin/current-round/refund", wallet), nil, nil)
}

func (c *Client) AdminRefundRound(ctx context.Context, wallet string, round int) error {
	path := c.adminPath("/admin/rounds/"+strconv.Itoa(round)+"/refund", wallet)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) AdminTransfer(ctx context.Context, wallet, affiliateWallet string, amount float64) error {
	body := map[string]any{
		"walletAddress": affiliateWallet,
		"amount":        amount,
	}
	return c.do(ctx, http.MethodPost, c.adminPath("/admin/transfer", wallet), body, nil)
}

func (c *Client) AdminDeleteAffiliate(ctx context.Context, wallet, affiliateID string) error {
	path := c.adminPath("/admin/affiliates/"+url.PathEscape(affiliateID), wallet)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
