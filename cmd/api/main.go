package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/docs"
	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/cache"
	"github.com/straye-as/quotebook-api/internal/config"
	"github.com/straye-as/quotebook-api/internal/database"
	"github.com/straye-as/quotebook-api/internal/document"
	"github.com/straye-as/quotebook-api/internal/http/handler"
	"github.com/straye-as/quotebook-api/internal/http/middleware"
	"github.com/straye-as/quotebook-api/internal/http/router"
	"github.com/straye-as/quotebook-api/internal/jobs"
	"github.com/straye-as/quotebook-api/internal/logger"
	"github.com/straye-as/quotebook-api/internal/mailer"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
	"github.com/straye-as/quotebook-api/internal/service"
	"github.com/straye-as/quotebook-api/internal/storage"
)

// @title Quotebook API
// @version 1.0
// @description Customers, quotations and invoices for small business accounts
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Admin API key, sent together with X-Account-ID
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	}

	// In development secrets come from the environment, in staging/production from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	appCache, err := cache.NewCache(&cfg.Cache, log)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer func() { _ = appCache.Close() }()

	archive, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	appMetrics := metrics.New(metrics.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	// Repositories
	customerRepo := repository.NewCustomerRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Services
	workflow := service.WorkflowConfig{
		DueDays:      cfg.App.DueDays,
		ValidityDays: cfg.App.ValidityDays,
	}
	mirror := service.NewMirror(appCache, cfg.Cache.WorkspaceTTLDuration(), appMetrics, log)

	activityService := service.NewActivityService(activityRepo, log)
	settingsService := service.NewSettingsService(settingRepo, activityService, log)
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, settingsService, log)
	customerService := service.NewCustomerService(customerRepo, activityService, mirror, log)
	quotationService := service.NewQuotationService(quotationRepo, customerRepo, numberSequenceService, activityService, mirror, appMetrics, workflow, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, quotationRepo, customerRepo, numberSequenceService, activityService, mirror, appMetrics, workflow, log)
	documentService := service.NewDocumentService(
		quotationService,
		invoiceService,
		settingsService,
		document.NewPDFRenderer(),
		mailer.New(&cfg.Mail, log),
		archive,
		activityService,
		appMetrics,
		log,
	)
	workspaceService := service.NewWorkspaceService(customerRepo, quotationRepo, invoiceRepo, mirror, log)

	// HTTP layer
	authMiddleware := auth.NewMiddleware(&cfg.Auth, cache.NewRevocationList(appCache), log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(cfg, log, appMetrics, authMiddleware, rateLimiter, router.Handlers{
		Auth:       handler.NewAuthHandler(authMiddleware, log),
		Workspace:  handler.NewWorkspaceHandler(workspaceService, log),
		Customers:  handler.NewCustomerHandler(customerService, log),
		Quotations: handler.NewQuotationHandler(quotationService, invoiceService, documentService, log),
		Invoices:   handler.NewInvoiceHandler(invoiceService, documentService, log),
		Settings:   handler.NewSettingsHandler(settingsService, log),
		Activities: handler.NewActivityHandler(activityService, log),
		Health:     handler.NewHealthHandler(db, appCache, log),
	})

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)
		jobLog := log.Named("jobs")

		if err := jobs.RegisterStatusSweepJob(scheduler, invoiceService, quotationService, appMetrics, jobLog,
			cfg.Jobs.StatusSweepCron, cfg.Jobs.JobTimeout(), true); err != nil {
			return fmt.Errorf("failed to register status sweep job: %w", err)
		}
		if err := jobs.RegisterPaymentReminderJob(scheduler, settingsService, documentService, appMetrics, jobLog,
			cfg.Jobs.RemindersCron, cfg.Jobs.JobTimeout()); err != nil {
			return fmt.Errorf("failed to register payment reminder job: %w", err)
		}
		if sweeper, ok := appCache.(jobs.Sweeper); ok {
			if err := jobs.RegisterCacheSweepJob(scheduler, sweeper, jobLog, "@every 1m"); err != nil {
				return fmt.Errorf("failed to register cache sweep job: %w", err)
			}
		}

		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("Error closing database connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
