package contracts

import "time"

// RunStatus is the lifecycle state of a screening run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TriggerType records how a run was started
type TriggerType string

const (
	TriggerScheduled TriggerType = "scheduled"
	TriggerManual    TriggerType = "manual"
)

// ConditionResult maps a 1-based condition number to its pass/fail outcome.
// Immutable once produced for a given (strategy, record) pair.
type ConditionResult map[int]bool

// AllPassed reports whether every condition passed
func (c ConditionResult) AllPassed() bool {
	for _, ok := range c {
		if !ok {
			return false
		}
	}
	return true
}

// FailedNumbers returns the condition numbers that failed
func (c ConditionResult) FailedNumbers() []int {
	failed := make([]int, 0)
	for num, ok := range c {
		if !ok {
			failed = append(failed, num)
		}
	}
	return failed
}

// FunnelCounter accumulates pass/fail counts for a single condition
type FunnelCounter struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Evaluated returns the total number of instruments counted so far
func (f FunnelCounter) Evaluated() int {
	return f.Passed + f.Failed
}

// ScreeningRun is one execution of a strategy over the universe.
// The orchestrator owns its lifecycle; it is never mutated after
// being finalized as completed or failed.
type ScreeningRun struct {
	ID              int64                 `json:"id"`
	StartedAt       time.Time             `json:"started_at"`
	Trigger         TriggerType           `json:"trigger"`
	StrategyID      string                `json:"strategy_id"`
	StrategyVersion string                `json:"strategy_version"`
	TotalStocks     int                   `json:"total_stocks"`
	PassedStocks    int                   `json:"passed_stocks"`
	FilterStats     map[int]FunnelCounter `json:"filter_stats"`
	Elapsed         time.Duration         `json:"elapsed"`
	Status          RunStatus             `json:"status"`
	ErrorMessage    string                `json:"error_message,omitempty"`
}

// FunnelStat is the cumulative per-condition funnel state at a point in the
// universe walk. Superseded (upserted) on re-run for the same date.
type FunnelStat struct {
	Date            time.Time `json:"date"`
	ConditionNumber int       `json:"condition_number"`
	ConditionName   string    `json:"condition_name"`
	Evaluated       int       `json:"evaluated"`
	Passed          int       `json:"passed"`
	Failed          int       `json:"failed"`
}

// ScreeningResult is the per-instrument outcome handed to persistence,
// upsert-keyed by (code, date, strategy)
type ScreeningResult struct {
	Record     StockRecord     `json:"record"`
	Date       time.Time       `json:"date"`
	StrategyID string          `json:"strategy_id"`
	Version    string          `json:"version"`
	Passed     bool            `json:"passed"`
	Conditions ConditionResult `json:"conditions"`
}

// Progress is emitted at a fixed cadence while a run walks the universe
type Progress struct {
	Current  int     `json:"current"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	Strategy string  `json:"strategy"`
}

// RunSummary is returned to the caller of StartRun
type RunSummary struct {
	Success        bool    `json:"success"`
	StrategyID     string  `json:"strategy_id,omitempty"`
	StrategyName   string  `json:"strategy_name,omitempty"`
	Total          int     `json:"total"`
	Passed         int     `json:"passed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Message        string  `json:"message,omitempty"`
}
