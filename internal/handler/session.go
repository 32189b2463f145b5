package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/service"
	"github.com/samimhm/simio-gateway/internal/wallet"
)

// GetSessionState reports the session's wallet state for page hydration.
func (h *Handler) GetSessionState(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	manager, err := h.sessions.Manager(c.Context(), session)
	if err != nil {
		return c.JSON(fiber.Map{
			"session_id": session.ID,
			"state":      string(wallet.StateInitFailed),
			"connected":  false,
			"error":      err.Error(),
		})
	}

	resp := fiber.Map{
		"session_id": session.ID,
		"state":      string(manager.State()),
		"connected":  manager.Connected(),
		"mode":       manager.Mode(),
	}
	if address := manager.Address(); address != "" {
		resp["address"] = address
	}
	if lastErr := manager.LastError(); lastErr != "" {
		resp["error"] = lastErr
	}
	return c.JSON(resp)
}

// Connect runs a wallet connect attempt for the session.
func (h *Handler) Connect(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	var params service.ConnectParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result, err := h.sessions.Connect(c.Context(), session, params)
	if err != nil {
		status := fiber.StatusBadGateway
		switch {
		case errors.Is(err, wallet.ErrUserRejected):
			status = fiber.StatusConflict
		case errors.Is(err, wallet.ErrConnectInProgress):
			status = fiber.StatusConflict
		case errors.Is(err, wallet.ErrConnectTimeout):
			status = fiber.StatusGatewayTimeout
		case errors.Is(err, wallet.ErrNoTrustedSession):
			status = fiber.StatusUnauthorized
		case errors.Is(err, wallet.ErrAppNotInstalled):
			// Not a failure: the caller gets the store URL to redirect to.
			return c.Status(fiber.StatusPreconditionFailed).JSON(result)
		case errors.Is(err, wallet.ErrNotInitialized):
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	}

	return c.JSON(result)
}

// Disconnect drops the session's wallet connection. Disconnecting while not
// connected is fine; the state lands on idle either way.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	if err := h.sessions.Disconnect(c.Context(), session); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// WalletCallback finishes a redirect-based connect. The wallet app lands the
// user here with either an address or an error in the query; we deliver the
// outcome to the pending connect and always send the user back to the
// feature route, carrying the error along when there is one.
func (h *Handler) WalletCallback(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	address := c.Query("address")
	errMsg := c.Query("errorMessage")
	h.sessions.CompleteConnect(session, address, errMsg)

	route, err := h.sessions.HandleCallback(c.Context(), session)
	if err != nil {
		route = route + "?error=" + url.QueryEscape(err.Error())
	}
	return c.Redirect(route, fiber.StatusFound)
}
