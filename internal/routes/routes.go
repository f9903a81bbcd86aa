package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/config"
	"github.com/congo-pay/custody/internal/funding"
	"github.com/congo-pay/custody/internal/identity"
	"github.com/congo-pay/custody/internal/infra"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/middleware"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/ownership"
	"github.com/congo-pay/custody/internal/payments"
	"github.com/congo-pay/custody/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Logger   *slog.Logger
	Stores   *infra.Stores
	Notifier notification.Notifier
	Verifier funding.Verifier
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Stores == nil {
		return fmt.Errorf("stores are required")
	}
	if d.Cfg.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID(d.Logger))
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))

	RegisterHealthRoutes(app, d)

	// Services
	dispatcher := notification.NewDispatcher(d.Notifier, d.Logger, d.Metrics)
	directory := identity.NewDirectory(d.Stores.Users)
	walletSvc := wallet.NewService(d.Stores.Wallets)
	identitySvc := identity.NewService(d.Stores.Users)
	issuer := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)

	fundingSvc, err := funding.NewService(d.Stores.Ledger, walletSvc, d.Verifier, funding.Options{
		Dispatcher:    dispatcher,
		Contacts:      directory,
		Metrics:       d.Metrics,
		Logger:        d.Logger,
		VerifyTimeout: d.Cfg.VerifyTimeout,
	})
	if err != nil {
		return err
	}
	paymentSvc := payments.NewService(d.Stores.Ledger, walletSvc, payments.Options{
		Dispatcher: dispatcher,
		Contacts:   directory,
		Metrics:    d.Metrics,
		Logger:     d.Logger,
	})
	ownershipSvc := ownership.NewService(d.Stores.Resources, directory, ownership.Options{
		Dispatcher: dispatcher,
		Contacts:   directory,
		Metrics:    d.Metrics,
		Logger:     d.Logger,
	})

	// Middlewares scoped to route groups
	loginLimiter := middleware.RateLimit(d.Stores.Cache, "login", 5, middleware.ByPhoneOrIP, d.Logger)
	moneyLimiter := middleware.RateLimit(d.Stores.Cache, "money", d.Cfg.RateLimitPerMinute, middleware.ByUserOrIP, d.Logger)
	idempotent := middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  d.Stores.Cache,
		TTL:    d.Cfg.IdempotencyTTL,
		Logger: d.Logger,
	})

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	identityHandler := identity.NewHandler(identitySvc, directory, walletSvc, d.Logger)
	paymentHandler := payments.NewHandler(paymentSvc, walletSvc)

	// Public routes
	RegisterIdentityRoutes(api, identityHandler, loginLimiter)
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, issuer, walletSvc), loginLimiter)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(issuer))
	RegisterProfileRoute(protected, identitySvc, walletSvc)
	RegisterDirectoryRoutes(protected, identityHandler)
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc), paymentHandler)
	RegisterFundingRoutes(protected, funding.NewHandler(fundingSvc), moneyLimiter, idempotent)
	RegisterPaymentRoutes(protected, paymentHandler, moneyLimiter, idempotent)
	RegisterOwnershipRoutes(protected, ownership.NewHandler(ownershipSvc), idempotent)

	return nil
}
