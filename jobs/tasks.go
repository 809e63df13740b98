package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup pre-builds the dashboard report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskLedgerIntegrity recomputes payment sums and reports drift.
	TaskLedgerIntegrity = "ledger:integrity"
)

// NewReportsWarmupTask constructs the warmup task. It carries no payload.
func NewReportsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportsWarmup, nil)
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}
