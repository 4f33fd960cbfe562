package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/automation"
	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/browser"
	"github.com/PratikLad0/job-search-automation/internal/config"
	"github.com/PratikLad0/job-search-automation/internal/database"
	"github.com/PratikLad0/job-search-automation/internal/handler"
	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/scheduler"
	"github.com/PratikLad0/job-search-automation/internal/service"
	"github.com/PratikLad0/job-search-automation/internal/textgen"
	"github.com/PratikLad0/job-search-automation/internal/webhook"
	"github.com/PratikLad0/job-search-automation/internal/worker"
	"github.com/PratikLad0/job-search-automation/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Job Search Automation Service", "version", version)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to MongoDB
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			slog.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	// Create indexes
	if err := database.CreateIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	jobRepo := database.NewJobRepository(db)
	profileRepo := database.NewProfileRepository(db)
	runRepo := database.NewRunRepository(db)
	lockRepo := database.NewLockRepository(db)
	deliveryRepo := database.NewDeliveryRepository(db)

	// Event fan-out and the single-flight task coordinator
	broadcaster := broadcast.NewBroadcaster()
	coordinator := worker.NewCoordinator(cfg.QueueCapacity, broadcaster, cfg.QueueLoopBackoff)
	coordinator.Start()

	// Browser automation
	browserManager := browser.NewManager(browser.Options{
		ProfileDir:     cfg.BrowserProfilePath,
		StatePath:      cfg.BrowserStatePath,
		ExecPath:       cfg.BrowserExecPath,
		Headless:       cfg.BrowserHeadless,
		AcquireTimeout: cfg.BrowserAcquireTimeout,
	})
	automationOpts := automation.Options{
		MaxSteps:            cfg.AutomationMaxSteps,
		ProbeTimeout:        cfg.AutomationProbeTimeout,
		NavigationTimeout:   cfg.AutomationNavigationTimeout,
		NewTabWait:          cfg.AutomationNewTabWait,
		PacingMin:           cfg.AutomationPacingMin,
		PacingMax:           cfg.AutomationPacingMax,
		RequireConfirmation: cfg.AutomationRequireConfirmation,
	}
	pacer := automation.NewPacer(cfg.AutomationPacingMin, cfg.AutomationPacingMax)
	registry := automation.NewDefaultRegistry(automationOpts, pacer)
	slog.Info("Browser automation configured",
		"session_mode", browserManager.Mode(),
		"appliers", registry.Sources(),
	)

	// Text generation
	generator := textgen.NewChainFromConfig(textgen.Config{
		Primary: cfg.AIPrimaryProvider,
		Backup:  cfg.AIBackupProvider,
		Ollama: textgen.ProviderConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaModel,
		},
		OpenAI: textgen.ProviderConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			APIKey:  cfg.OpenAIAPIKey,
		},
		RequestsPerMinute: cfg.AIRequestsPerMin,
	}, service.NewHTTPClient(cfg.AITimeout))
	slog.Info("Text generation configured", "providers", generator.Providers())

	// Initialize services
	jobService := service.NewJobService(jobRepo)
	profileService := service.NewProfileService(profileRepo, cfg.DefaultProfileID)
	runService := service.NewRunService(runRepo)
	applicationService := service.NewApplicationService(
		jobRepo,
		profileRepo,
		runRepo,
		service.NewBrowserSessions(browserManager),
		registry,
		cfg.DefaultProfileID,
	)
	textService := service.NewTextService(generator, jobRepo, profileRepo, cfg.DefaultProfileID, cfg.OutputDir)

	// Optional outbound event webhook
	var webhookObserver *webhook.Observer
	if cfg.EventWebhookURL != "" {
		hook := model.EventWebhook{URL: cfg.EventWebhookURL}
		if err := hook.Validate(); err != nil {
			slog.Error("Invalid EVENT_WEBHOOK_URL", "error", err)
			os.Exit(1)
		}
		dispatcher := webhook.NewDispatcher(service.NewHTTPClient(cfg.EventWebhookTimeout), nil)
		webhookObserver = webhook.NewObserver(hook, dispatcher, deliveryRepo, 0)
		webhookObserver.Start()
		broadcaster.Subscribe(webhookObserver)
		slog.Info("Event webhook enabled", "url", hook.URL)
	}

	// Initialize auto-apply scheduler
	var sched *scheduler.Scheduler
	if cfg.AutoApplyEnabled {
		submit := func(jobID string) (string, error) {
			return applicationService.Submit(coordinator, jobID)
		}
		sched, err = scheduler.NewScheduler(scheduler.OptionsFromConfig(cfg), lockRepo, jobRepo, coordinator, submit)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start(ctx)
	}

	// Initialize handlers
	jobHandler := handler.NewJobHandler(jobService, applicationService, textService, coordinator)
	taskHandler := handler.NewTaskHandler(coordinator, textService)
	profileHandler := handler.NewProfileHandler(profileService)
	historyHandler := handler.NewHistoryHandler(runService)
	streamHandler := handler.NewStreamHandler(broadcaster, coordinator, textService)
	healthHandler := handler.NewHealthHandler(db, coordinator, broadcaster, version)

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	// Create router
	router := handler.NewRouter(
		jobHandler,
		taskHandler,
		profileHandler,
		historyHandler,
		streamHandler,
		healthHandler,
		corsConfig,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop scheduler first so no new applications are submitted
	if sched != nil {
		slog.Info("Stopping scheduler...")
		sched.Stop(shutdownCtx)
	}

	// Shutdown HTTP server, then the hijacked websocket connections
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	streamHandler.Close()

	// Wait for the running task; queued tasks are abandoned
	slog.Info("Stopping task coordinator...", "queue_length", coordinator.QueueLength())
	if err := coordinator.Stop(shutdownCtx); err != nil {
		slog.Error("Task coordinator stop error", "error", err)
	}

	if webhookObserver != nil {
		broadcaster.Unsubscribe(webhookObserver.ID())
		webhookObserver.Stop(shutdownCtx)
	}

	slog.Info("Job Search Automation Service stopped")
}
