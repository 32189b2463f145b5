package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/repository"
	"github.com/samimhm/simio-gateway/internal/service"
)

type Handler struct {
	cfg          *config.Config
	repo         *repository.Repository
	sessions     *service.SessionService
	raffleSvc    *service.RaffleService
	affiliateSvc *service.AffiliateService
	adminSvc     *service.AdminService
	poller       *service.StatusPoller
}

func New(
	cfg *config.Config,
	repo *repository.Repository,
	sessions *service.SessionService,
	raffleSvc *service.RaffleService,
	affiliateSvc *service.AffiliateService,
	adminSvc *service.AdminService,
	poller *service.StatusPoller,
) *Handler {
	return &Handler{
		cfg:          cfg,
		repo:         repo,
		sessions:     sessions,
		raffleSvc:    raffleSvc,
		affiliateSvc: affiliateSvc,
		adminSvc:     adminSvc,
		poller:       poller,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.repo.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
