package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/upstream"
)

// connectedAddress resolves the session's wallet address, or "" when no
// wallet is connected.
func (h *Handler) connectedAddress(c *fiber.Ctx) string {
	session := middleware.GetSession(c)
	manager, err := h.sessions.Manager(c.Context(), session)
	if err != nil {
		return ""
	}
	return manager.Address()
}

// CaptureAffiliateVisit records a referral code for the session. The session
// middleware already captures codes from the query string; this endpoint
// exists for pages that pick the code up client-side.
func (h *Handler) CaptureAffiliateVisit(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	var body struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.affiliateSvc.CaptureVisit(c.Context(), session.ID, body.Code); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record referral",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetAffiliateStatus returns the connected wallet's affiliate record. A 404
// from the backend is the normal not-yet-registered case, not an error.
func (h *Handler) GetAffiliateStatus(c *fiber.Ctx) error {
	address := h.connectedAddress(c)
	if address == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "wallet not connected",
		})
	}

	record, err := h.affiliateSvc.Status(c.Context(), address)
	if err != nil {
		if errors.Is(err, upstream.ErrNotRegistered) {
			return c.JSON(fiber.Map{"registered": false})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"registered": true,
		"affiliate":  record,
	})
}

func (h *Handler) GetAffiliateHistory(c *fiber.Ctx) error {
	address := h.connectedAddress(c)
	if address == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "wallet not connected",
		})
	}

	entries, err := h.affiliateSvc.History(c.Context(), address)
	if err != nil {
		if errors.Is(err, upstream.ErrNotRegistered) {
			return c.JSON(fiber.Map{"rewardHistory": []any{}})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"rewardHistory": entries})
}

func (h *Handler) RegisterAffiliate(c *fiber.Ctx) error {
	address := h.connectedAddress(c)
	if address == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "wallet not connected",
		})
	}

	record, err := h.affiliateSvc.Register(c.Context(), address)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"registered": true,
		"affiliate":  record,
	})
}
