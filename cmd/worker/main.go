package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docvault/docvault/internal/bootstrap"
	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/observability/logging"
	"github.com/docvault/docvault/internal/observability/metrics"
)

// processTimeout bounds a single document end to end, including OCR polling.
const processTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeExtractJobs(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		if doc, err := app.Repo.GetByID(processCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(doc.UploadedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		processErr := app.ExtractUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument("worker", finalStatus(processCtx, app, documentID, processErr), time.Since(start))
		return processErr
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}

// finalStatus reads the stored status for metrics labels, falling back to a
// coarse success/error split when the row cannot be read back.
func finalStatus(ctx context.Context, app *bootstrap.App, documentID string, processErr error) string {
	if doc, err := app.Repo.GetByID(ctx, documentID); err == nil && doc.OCRStatus.Terminal() {
		return string(doc.OCRStatus)
	}
	if processErr != nil {
		return string(domain.StatusFailed)
	}
	return string(domain.StatusCompleted)
}
