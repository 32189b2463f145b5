package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/service"
)

func adminStatus(err error) (int, fiber.Map) {
	if errors.Is(err, service.ErrNotAdmin) {
		return fiber.StatusUnauthorized, fiber.Map{"error": "access restricted"}
	}
	return fiber.StatusBadGateway, fiber.Map{"error": err.Error()}
}

func (h *Handler) AdminDashboard(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	payload, err := h.adminSvc.Dashboard(c.Context(), wallet)
	if err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

func (h *Handler) AdminAffiliates(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	payload, err := h.adminSvc.Affiliates(c.Context(), wallet)
	if err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

func (h *Handler) AdminRounds(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	payload, err := h.adminSvc.Rounds(c.Context(), wallet)
	if err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

func (h *Handler) AdminExport(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	payload, err := h.adminSvc.Export(c.Context(), wallet, c.Params("type"))
	if err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "access restricted"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

func (h *Handler) AdminRefundParticipant(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	if err := h.adminSvc.RefundParticipant(c.Context(), wallet, c.Params("address")); err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminRefundCurrentRound(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	if err := h.adminSvc.RefundCurrentRound(c.Context(), wallet); err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminRefundRound(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	round, err := strconv.Atoi(c.Params("round"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid round number",
		})
	}
	if err := h.adminSvc.RefundRound(c.Context(), wallet, round); err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminTransfer(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)

	var body struct {
		WalletAddress string  `json:"walletAddress"`
		Amount        float64 `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if body.WalletAddress == "" || body.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "walletAddress and a positive amount are required",
		})
	}

	if err := h.adminSvc.Transfer(c.Context(), wallet, body.WalletAddress, body.Amount); err != nil {
		status, respBody := adminStatus(err)
		return c.Status(status).JSON(respBody)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) AdminDeleteAffiliate(c *fiber.Ctx) error {
	wallet := middleware.GetAdminWallet(c)
	if err := h.adminSvc.DeleteAffiliate(c.Context(), wallet, c.Params("id")); err != nil {
		status, body := adminStatus(err)
		return c.Status(status).JSON(body)
	}
	return c.JSON(fiber.Map{"success": true})
}
