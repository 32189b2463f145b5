package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/model"
	"github.com/samimhm/simio-gateway/internal/service"
)

const SessionKey = "session"

// Session resolves or creates the gateway session for the request and, when
// the URL carries a referral parameter, captures it. Invalid referral codes
// are ignored silently; they are not failures.
func Session(cfg *config.Config, sessions *service.SessionService, affiliates *service.AffiliateService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uuid.UUID
		if raw := c.Cookies(cfg.Session.CookieName); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err == nil {
				id = parsed
			}
		}

		session, err := sessions.EnsureSession(c.Context(), id)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve session",
			})
		}

		if session.ID != id {
			c.Cookie(&fiber.Cookie{
				Name:     cfg.Session.CookieName,
				Value:    session.ID.String(),
				Expires:  time.Now().Add(cfg.Session.TTL),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		if code := c.Query("a"); code != "" {
			if err := affiliates.CaptureVisit(c.Context(), session.ID, code); err != nil {
				log.Printf("[Session] Failed to capture referral code: %v", err)
			}
		}

		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// GetSession returns the request's session from context.
func GetSession(c *fiber.Ctx) *model.Session {
	session, ok := c.Locals(SessionKey).(*model.Session)
	if !ok {
		return nil
	}
	return session
}
