package handler

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/service"
)

// GetRaffleStatus serves the cached round state plus the join gate for the
// caller's session. The cache is served no matter what: backend outages only
// set the flag, and a failed balance lookup only degrades the gate.
func (h *Handler) GetRaffleStatus(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	status, _, unreachable, hasData := h.poller.Snapshot()

	resp := fiber.Map{
		"required_participants": model.RequiredParticipants,
		"stake":                 model.JoinStakeTokens,
		"backend_unreachable":   unreachable,
		"has_data":              hasData,
	}
	if status != nil {
		resp["round"] = status.Round
		resp["participants"] = status.Participants
	}

	gate, err := h.raffleSvc.Gate(c.Context(), session)
	resp["gate"] = gate
	if err != nil {
		resp["gate_error"] = err.Error()
		resp["can_join"] = false
		return c.JSON(resp)
	}

	resp["can_join"] = gate.Allowed()
	if reason := gate.Reason(); reason != "" {
		resp["blocked_reason"] = reason
	}
	return c.JSON(resp)
}

// GetRaffleHistory serves resolved rounds, newest first.
func (h *Handler) GetRaffleHistory(c *fiber.Ctx) error {
	_, history, unreachable, hasData := h.poller.Snapshot()

	// Newest round on top for display.
	sorted := make([]model.RaffleRound, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Round > sorted[j].Round
	})

	return c.JSON(fiber.Map{
		"rounds":              sorted,
		"backend_unreachable": unreachable,
		"has_data":            hasData,
	})
}

// JoinRaffle submits the entry transfer for the session's connected wallet.
func (h *Handler) JoinRaffle(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	signature, err := h.raffleSvc.Join(c.Context(), session)
	if err != nil {
		if errors.Is(err, service.ErrJoinNotAllowed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"signature": signature,
	})
}

// GetPendingTransaction exposes the transaction waiting for the session's
// browser wallet to sign, base64-encoded.
func (h *Handler) GetPendingTransaction(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	tx, ok := h.sessions.PendingTransaction(session)
	resp := fiber.Map{"pending": ok}
	if ok {
		resp["transaction"] = tx
	}
	return c.JSON(resp)
}

// CompleteSign delivers the wallet's signing result to the pending join
// submission, the way the callback route completes a connect.
func (h *Handler) CompleteSign(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	var body struct {
		Signature string `json:"signature"`
		Error     string `json:"error"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if body.Signature == "" && body.Error == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "signature or error is required",
		})
	}

	if err := h.sessions.CompleteSign(session, body.Signature, body.Error); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetJoinAttempts serves the session's submission audit trail.
func (h *Handler) GetJoinAttempts(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	attempts, err := h.raffleSvc.Attempts(c.Context(), session)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load join attempts",
		})
	}
	return c.JSON(fiber.Map{"attempts": attempts})
}

// GetPrize reports whether the connected wallet won the latest resolved
// round, and how much.
func (h *Handler) GetPrize(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	address := ""
	if manager, err := h.sessions.Manager(c.Context(), session); err == nil {
		address = manager.Address()
	}

	rank := h.poller.PrizeRank(address)
	resp := fiber.Map{
		"won":  rank >= 0,
		"rank": rank,
	}
	if rank >= 0 {
		resp["amount"] = model.PrizeAmount(rank)
	}
	return c.JSON(resp)
}
