package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samimhm/simio-gateway/internal/chain"
	"github.com/samimhm/simio-gateway/internal/config"
	"github.com/samimhm/simio-gateway/internal/handler"
	"github.com/samimhm/simio-gateway/internal/middleware"
	"github.com/samimhm/simio-gateway/internal/notify"
	"github.com/samimhm/simio-gateway/internal/repository"
	"github.com/samimhm/simio-gateway/internal/service"
	"github.com/samimhm/simio-gateway/internal/upstream"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	// Backend and chain clients
	backend, err := upstream.New(cfg.Upstream.BaseURL)
	if err != nil {
		log.Fatalf("Failed to create backend client: %v", err)
	}

	chainClient, err := chain.New(cfg.Solana)
	if err != nil {
		log.Fatalf("Failed to create chain client: %v", err)
	}

	// Telegram notifier (optional)
	var bot *notify.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = notify.NewBot(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			log.Printf("Warning: Failed to create Telegram bot: %v", err)
		}
	}

	// Create services
	affiliateSvc := service.NewAffiliateService(repo, backend)
	sessions := service.NewSessionService(cfg, repo, affiliateSvc, chainClient)

	var poller *service.StatusPoller
	poller = service.NewStatusPoller(backend, bot, func() string {
		return sessions.ActiveParticipant(poller.IsParticipant)
	})

	raffleSvc := service.NewRaffleService(poller, chainClient, sessions, repo, bot)
	adminSvc := service.NewAdminService(backend)

	// Create handlers
	h := handler.New(cfg, repo, sessions, raffleSvc, affiliateSvc, adminSvc, poller)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: cfg.Server.AllowOrigins != "*",
	}))

	// Health check
	app.Get("/health", h.Health)

	// Everything below rides on a gateway session
	session := middleware.Session(cfg, sessions, affiliateSvc)

	// Wallet callback (redirect-based connects land here)
	app.Get("/phantom-callback", session, h.WalletCallback)

	api := app.Group("/api", session)

	// Session / wallet
	api.Get("/session", h.GetSessionState)
	api.Post("/session/connect", h.Connect)
	api.Post("/session/disconnect", h.Disconnect)

	// Raffle
	api.Get("/raffle/status", h.GetRaffleStatus)
	api.Get("/raffle/history", h.GetRaffleHistory)
	api.Post("/raffle/join", h.JoinRaffle)
	api.Get("/raffle/pending-tx", h.GetPendingTransaction)
	api.Post("/raffle/sign-complete", h.CompleteSign)
	api.Get("/raffle/attempts", h.GetJoinAttempts)
	api.Get("/raffle/prize", h.GetPrize)

	// Affiliate
	api.Post("/affiliate/visit", h.CaptureAffiliateVisit)
	api.Get("/affiliate/status", h.GetAffiliateStatus)
	api.Get("/affiliate/history", h.GetAffiliateHistory)
	api.Post("/affiliate/register", h.RegisterAffiliate)

	// Cookie consent
	api.Get("/consent", h.GetConsent)
	api.Post("/consent", h.SetConsent)

	// Admin proxy (requires a connected wallet; the backend decides whether
	// it is an admin wallet)
	admin := app.Group("/api/admin", session, middleware.AdminWallet())
	admin.Get("/dashboard", h.AdminDashboard)
	admin.Get("/affiliates", h.AdminAffiliates)
	admin.Get("/rounds", h.AdminRounds)
	admin.Get("/export/:type", h.AdminExport)
	admin.Post("/participants/:address/refund", h.AdminRefundParticipant)
	admin.Post("/current-round/refund", h.AdminRefundCurrentRound)
	admin.Post("/rounds/:round/refund", h.AdminRefundRound)
	admin.Post("/transfer", h.AdminTransfer)
	admin.Delete("/affiliates/:id", h.AdminDeleteAffiliate)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Start(ctx)
	go sessions.RunReaper(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
