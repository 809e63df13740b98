package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/nexcell-pos/nexcell-pos/internal/jobs"
)

// ReportWarmer is the slice of the reports service the worker needs.
type ReportWarmer interface {
	Warmup(ctx context.Context) error
}

// NewReportsWarmupHandler builds the handler for TaskReportsWarmup.
func NewReportsWarmupHandler(warmer ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("reports_warmup")
		if err := tracker.End(warmer.Warmup(ctx)); err != nil {
			logger.Error("reports warmup failed", slog.Any("error", err))
			return err
		}
		logger.Info("reports warmup complete")
		return nil
	}
}

// NewLedgerIntegrityHandler builds the handler for TaskLedgerIntegrity.
func NewLedgerIntegrityHandler(scanner *IntegrityScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("ledger_integrity")
		mismatches, err := scanner.Run(ctx)
		if err = tracker.End(err); err != nil {
			logger.Error("ledger integrity scan failed", slog.Any("error", err))
			return err
		}
		logger.Info("ledger integrity scan finished", slog.Int("mismatches", mismatches))
		return nil
	}
}
