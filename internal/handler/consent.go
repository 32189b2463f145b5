package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/repository"
)

// SetConsent stores the session's cookie-consent decision. Only the two
// explicit values are accepted; there is no "dismissed" state.
func (h *Handler) SetConsent(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	var body struct {
		Value model.ConsentValue `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if !body.Value.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "value must be accepted or refused",
		})
	}

	if err := h.repo.SetConsent(c.Context(), session.ID, body.Value); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store consent",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetConsent reports the stored decision, or that none was made yet.
func (h *Handler) GetConsent(c *fiber.Ctx) error {
	session := middleware.GetSession(c)

	consent, err := h.repo.GetConsent(c.Context(), session.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConsentNotFound) {
			return c.JSON(fiber.Map{"decided": false})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load consent",
		})
	}

	return c.JSON(fiber.Map{
		"decided": true,
		"value":   consent.Value,
	})
}
