package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lexvault/import-engine/internal/bootstrap"
	"github.com/lexvault/import-engine/internal/config"
	"github.com/lexvault/import-engine/internal/core/domain"
	"github.com/lexvault/import-engine/internal/core/usecase"
	"github.com/lexvault/import-engine/internal/observability/logging"
	"github.com/lexvault/import-engine/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.New("import-worker", cfg.Environment, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("import-worker")
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

	// Scheduled sweep: batches idle past the threshold in any in-progress
	// session get offered to users who have finished their own batches.
	scheduler := cron.New()
	stalledFor := time.Duration(cfg.StalledHours) * time.Hour
	if stalledFor <= 0 {
		stalledFor = usecase.DefaultStallThreshold
	}
	_, err = scheduler.AddFunc(cfg.SweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		moves, err := app.Reassigner.SweepStalled(sweepCtx, stalledFor)
		if err != nil {
			slog.Error("stall sweep failed", "error", err)
			return
		}
		workerMetrics.RecordSweepMoves("import-worker", moves)
		if moves > 0 {
			slog.Info("stall sweep reassigned batches", "moves", moves)
		}
	})
	if err != nil {
		log.Fatalf("invalid sweep schedule %q: %v", cfg.SweepSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobs(ctx, func(handlerCtx context.Context, job domain.ImportJob) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartJob()
		start := time.Now()
		jobErr := app.Jobs.Process(jobCtx, job)
		workerMetrics.FinishJob("import-worker", string(job.Kind), time.Since(start), jobErr)
		return jobErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
