package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/agenda-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/agenda-platform/internal/config"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.ConversationQueue != "sqs" {
		logger.Error("conversation worker requires CONVERSATION_QUEUE=sqs", "queue", cfg.ConversationQueue)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	app, err := bootstrap.Build(ctx, cfg, logger, bootstrap.WithRegisterer(reg))
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go app.RunMaintenance(ctx, time.Minute)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", "error", err)
		}
	}()

	worker := app.NewWorker(nil)
	worker.Start(ctx)
	logger.Info("conversation worker started", "workers", cfg.WorkerCount, "queue_url", cfg.ConversationQueueURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}
