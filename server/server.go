// Package server exposes the gateway over HTTP: payment endpoints behind
// API-key auth, HMAC-signed webhook endpoints and API-key management.
package server

import (
	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stablepay/stablepay"
	"github.com/stablepay/stablepay/logger"
)

const version = stablepay.Version

// Options configures a Server.
type Options struct {
	WebhookSecret string
	APIKey        string
	EnableMetrics bool
	Logger        logger.Logger
	Clock         clock.Clock
}

// Server wraps the fiber application serving the gateway API.
type Server struct {
	app     *fiber.App
	gateway *stablepay.Gateway
	keys    *APIKeyStore

	masterKey     string
	webhookSecret string
	log           logger.Logger
}

// New builds the HTTP server and registers all routes.
func New(gw *stablepay.Gateway, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	s := &Server{
		gateway:       gw,
		keys:          NewAPIKeyStore(clk),
		masterKey:     opts.APIKey,
		webhookSecret: opts.WebhookSecret,
		log:           log,
	}

	app := fiber.New(fiber.Config{
		AppName:               "stablepay",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error("unhandled request error", map[string]any{
				"path":  c.Path(),
				"error": err.Error(),
			})
			return fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		},
	})
	app.Use(recover.New())

	app.Get("/health", s.handleHealth)
	if opts.EnableMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	payment := app.Group("/api/payment", s.requireAuth())
	payment.Post("/create", s.requirePermission(PermCreate), s.handleCreate)
	payment.Post("/verify", s.requirePermission(PermVerify), s.handleVerify)
	payment.Get("/status/:paymentId", s.requirePermission(PermStatus), s.handleStatus)
	payment.Get("/list", s.requirePermission(PermAdmin), s.handleList)
	payment.Get("/balance", s.requirePermission(PermBalance), s.handleBalance)
	payment.Get("/networks", s.requirePermission(PermStatus), s.handleNetworks)
	payment.Get("/networks/:networkKey", s.requirePermission(PermStatus), s.handleNetworkInfo)
	payment.Get("/tokens/:networkKey", s.requirePermission(PermStatus), s.handleTokens)

	webhook := app.Group("/api/webhook", s.requireSignature())
	webhook.Post("/payment-confirmed", s.handlePaymentConfirmed)
	webhook.Post("/transaction-notification", s.handleTransferNotification)

	keys := app.Group("/api/keys", s.requireAuth())
	keys.Post("/create", s.requirePermission(PermAdmin), s.handleCreateKey)
	keys.Get("/list", s.requirePermission(PermAdmin), s.handleListKeys)
	keys.Post("/revoke", s.requirePermission(PermAdmin), s.handleRevokeKey)
	keys.Get("/info", s.handleKeyInfo)

	s.app = app
	return s
}

// App exposes the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", map[string]any{"addr": addr})
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
