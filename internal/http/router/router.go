package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/quotebook-api/docs" // Import generated swagger docs
	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/config"
	"github.com/straye-as/quotebook-api/internal/http/handler"
	"github.com/straye-as/quotebook-api/internal/http/middleware"
	"github.com/straye-as/quotebook-api/internal/metrics"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Auth       *handler.AuthHandler
	Workspace  *handler.WorkspaceHandler
	Customers  *handler.CustomerHandler
	Quotations *handler.QuotationHandler
	Invoices   *handler.InvoiceHandler
	Settings   *handler.SettingsHandler
	Activities *handler.ActivityHandler
	Health     *handler.HealthHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	metrics        *metrics.Metrics
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		metrics:        m,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Metrics(rt.metrics))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	// Health checks
	r.Get("/health", rt.handlers.Health.Live)
	r.Get("/health/db", rt.handlers.Health.Database)
	r.Get("/health/ready", rt.handlers.Health.Ready)

	if rt.cfg.Server.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(middleware.CaptureAccount)
		r.Use(rt.rateLimiter.LimitByAccount)

		// Auth
		r.Get("/auth/me", rt.handlers.Auth.Me)
		r.Post("/auth/signout", rt.handlers.Auth.SignOut)

		r.Get("/workspace", rt.handlers.Workspace.Get)
		r.Get("/activities", rt.handlers.Activities.List)

		// Customers
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", rt.handlers.Customers.List)
			r.Post("/", rt.handlers.Customers.Create)
			r.Get("/{id}", rt.handlers.Customers.GetByID)
			r.Put("/{id}", rt.handlers.Customers.Update)
			r.Delete("/{id}", rt.handlers.Customers.Delete)
		})

		// Quotations
		r.Route("/quotations", func(r chi.Router) {
			r.Get("/", rt.handlers.Quotations.List)
			r.Post("/", rt.handlers.Quotations.Create)
			r.Get("/stats", rt.handlers.Quotations.Stats)
			r.Get("/{id}", rt.handlers.Quotations.GetByID)
			r.Delete("/{id}", rt.handlers.Quotations.Delete)

			// Lifecycle endpoints
			r.Put("/{id}/status", rt.handlers.Quotations.UpdateStatus)
			r.Post("/{id}/send", rt.handlers.Quotations.Send)
			r.Post("/{id}/convert", rt.handlers.Quotations.Convert)
			r.Get("/{id}/pdf", rt.handlers.Quotations.PDF)
		})

		// Invoices
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", rt.handlers.Invoices.List)
			r.Post("/", rt.handlers.Invoices.Create)
			r.Get("/stats", rt.handlers.Invoices.Stats)
			r.Get("/{id}", rt.handlers.Invoices.GetByID)
			r.Delete("/{id}", rt.handlers.Invoices.Delete)

			// Lifecycle endpoints
			r.Put("/{id}/status", rt.handlers.Invoices.UpdateStatus)
			r.Post("/{id}/mark-paid", rt.handlers.Invoices.MarkPaid)
			r.Post("/{id}/send", rt.handlers.Invoices.Send)
			r.Post("/{id}/reminder", rt.handlers.Invoices.Reminder)
			r.Get("/{id}/pdf", rt.handlers.Invoices.PDF)
		})

		// Settings
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", rt.handlers.Settings.GetAll)
			r.Get("/{type}", rt.handlers.Settings.Get)
			r.Put("/{type}", rt.handlers.Settings.Put)
		})
	})

	return r
}
