package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/sevensplit/internal/store"
	"github.com/wonny/sevensplit/pkg/logger"
)

// RetentionJob prunes old screening results and funnel stats.
// Run history is kept for auditability.
type RetentionJob struct {
	store         *store.Store
	retentionDays int
	logger        *logger.Logger
}

// NewRetentionJob creates a new retention cleanup job
func NewRetentionJob(st *store.Store, retentionDays int, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		store:         st,
		retentionDays: retentionDays,
		logger:        log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "result_retention"
}

// Schedule returns the cron schedule (every Sunday at 3 AM)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the retention cleanup
func (j *RetentionJob) Run(ctx context.Context) error {
	j.logger.WithField("retention_days", j.retentionDays).Debug("Starting result retention cleanup")

	removed, err := j.store.DeleteOlderThan(ctx, j.retentionDays)
	if err != nil {
		return fmt.Errorf("retention cleanup: %w", err)
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Result retention cleanup completed")
	}

	return nil
}
