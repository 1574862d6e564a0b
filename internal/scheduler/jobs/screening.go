package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/screening"
	"github.com/wonny/sevensplit/pkg/logger"
)

// ScreeningJob runs the default strategy over the full universe once a day,
// after the KRX snapshot for the session is final
// ⭐ SSOT: 스크리닝 스케줄은 이 Job에서만
type ScreeningJob struct {
	orchestrator *screening.Orchestrator
	schedule     string
	logger       *logger.Logger
}

// NewScreeningJob creates a new screening job
func NewScreeningJob(orch *screening.Orchestrator, schedule string, log *logger.Logger) *ScreeningJob {
	return &ScreeningJob{
		orchestrator: orch,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "daily_screening"
}

// Schedule returns the cron schedule expression
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run executes the screening with the configured default strategy
func (j *ScreeningJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled screening")

	summary := j.orchestrator.StartRun(ctx, "", contracts.TriggerScheduled)
	if !summary.Success {
		return fmt.Errorf("scheduled screening failed: %s", summary.Message)
	}

	j.logger.WithFields(map[string]interface{}{
		"strategy": summary.StrategyID,
		"total":    summary.Total,
		"passed":   summary.Passed,
		"elapsed":  summary.ElapsedSeconds,
	}).Info("Scheduled screening completed")

	return nil
}
