package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/agenda-platform/internal/api/router"
	"github.com/wolfman30/agenda-platform/internal/app/bootstrap"
	"github.com/wolfman30/agenda-platform/internal/appointments"
	"github.com/wolfman30/agenda-platform/internal/availability"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/internal/conversation"
	httpmiddleware "github.com/wolfman30/agenda-platform/internal/http/middleware"
	"github.com/wolfman30/agenda-platform/internal/webchat"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting agenda-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	app, err := bootstrap.Build(ctx, cfg, logger, bootstrap.WithRegisterer(reg))
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go app.RunMaintenance(ctx, time.Minute)
	worker := setupInlineWorker(ctx, app)

	limiter := httpmiddleware.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)
	go sweepLimiter(ctx, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(app, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	waitForInlineWorker(worker, logger)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newRouter(app *bootstrap.App, metricsHandler http.Handler, limiter *httpmiddleware.RateLimiter) http.Handler {
	logger := app.Logger
	cfg := &router.Config{
		Logger:              logger,
		CatalogHandler:      catalog.NewHandler(app.Catalog, logger),
		AvailabilityHandler: availability.NewHandler(app.Availability, logger),
		AppointmentsHandler: appointments.NewHandler(app.Appointments, logger),
		ConversationHandler: conversation.NewHandler(app.Machine, app.Transcript, logger),
		WebChat:             webchat.NewHandler(app.Machine, app.Transcript, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  app.Config.CORSAllowedOrigins,
		ChatRateLimiter:     limiter,
	}
	if app.DB != nil {
		cfg.DB = app.DB
	}
	if app.Config.WhatsAppVerifyToken != "" {
		cfg.WhatsAppWebhook = conversation.NewWebhookHandler(
			app.Config.WhatsAppVerifyToken,
			app.Config.WhatsAppAppSecret,
			app.Publisher,
			app.Processed,
			logger,
		)
	}
	return router.New(cfg)
}

// setupInlineWorker consumes the in-memory queue inside the API process. SQS
// deployments run cmd/conversation-worker instead.
func setupInlineWorker(ctx context.Context, app *bootstrap.App) *conversation.Worker {
	if _, ok := app.Queue.(*conversation.MemoryQueue); !ok {
		return nil
	}
	worker := app.NewWorker(nil)
	worker.Start(ctx)
	app.Logger.Info("inline conversation worker started", "workers", app.Config.WorkerCount)
	return worker
}

func waitForInlineWorker(worker *conversation.Worker, logger *logging.Logger) {
	if worker == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("inline conversation worker stopped")
	case <-time.After(10 * time.Second):
		logger.Warn("inline conversation worker shutdown timed out")
	}
}

func sweepLimiter(ctx context.Context, limiter *httpmiddleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
