package screening

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/strategy"
	"github.com/wonny/sevensplit/pkg/logger"
)

// Config holds orchestrator tuning knobs
type Config struct {
	DefaultStrategy string
	ProgressEvery   int           // 진행 이벤트 주기 (종목 수)
	FlushEvery      int           // 배치 커밋 주기 (종목 수)
	PaceInterval    time.Duration // 종목 간 최소 간격 (업스트림 레이트리밋 보호)
}

// DefaultConfig mirrors the reference cadence: progress every 10, flush
// every 100, ~50ms between instruments
func DefaultConfig() Config {
	return Config{
		DefaultStrategy: "seven_split_21",
		ProgressEvery:   10,
		FlushEvery:      100,
		PaceInterval:    50 * time.Millisecond,
	}
}

// Orchestrator walks the universe, builds per-instrument records, applies
// the selected strategy, and owns the ScreeningRun / funnel-stat lifecycle.
// idle → running → completed | failed. One active run per strategy; runs of
// different strategies are independent.
// ⭐ SSOT: 스크리닝 실행은 이 타입에서만
type Orchestrator struct {
	registry  *strategy.Registry
	collector *Collector
	settings  contracts.SettingsProvider
	store     contracts.PersistenceStore
	notifier  contracts.NotificationSink
	logger    *logger.Logger
	config    Config
	limiter   *rate.Limiter

	mu          sync.Mutex
	active      map[string]bool
	progressFns []func(contracts.Progress)
	completeFns []func(contracts.RunSummary)
}

// NewOrchestrator wires the screening pipeline
func NewOrchestrator(
	registry *strategy.Registry,
	collector *Collector,
	settings contracts.SettingsProvider,
	store contracts.PersistenceStore,
	notifier contracts.NotificationSink,
	config Config,
	log *logger.Logger,
) *Orchestrator {
	var limiter *rate.Limiter
	if config.PaceInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(config.PaceInterval), 1)
	}
	return &Orchestrator{
		registry:  registry,
		collector: collector,
		settings:  settings,
		store:     store,
		notifier:  notifier,
		logger:    log.WithField("module", "orchestrator"),
		config:    config,
		limiter:   limiter,
		active:    make(map[string]bool),
	}
}

// OnProgress registers a progress subscriber. Register before starting runs.
func (o *Orchestrator) OnProgress(fn func(contracts.Progress)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progressFns = append(o.progressFns, fn)
}

// OnComplete registers a completion subscriber
func (o *Orchestrator) OnComplete(fn func(contracts.RunSummary)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completeFns = append(o.completeFns, fn)
}

// StartRun executes one screening run. strategyID may be empty, in which
// case the default strategy from settings applies. Fatal errors (unknown
// strategy, empty universe) fail the whole run; per-instrument errors are
// logged and skipped.
func (o *Orchestrator) StartRun(ctx context.Context, strategyID string, trigger contracts.TriggerType) contracts.RunSummary {
	startTime := time.Now()

	if strategyID == "" {
		strategyID = o.settings.Get(ctx, "default_strategy", o.config.DefaultStrategy)
	}

	strat, err := o.registry.Get(strategyID)
	if err != nil {
		o.logger.WithError(err).WithStrategy(strategyID).Error("Strategy resolution failed")
		return contracts.RunSummary{
			Success: false,
			Message: fmt.Sprintf("%v: %s", ErrStrategyNotFound, strategyID),
		}
	}

	if !o.acquire(strategyID) {
		return contracts.RunSummary{
			Success:    false,
			StrategyID: strategyID,
			Message:    fmt.Sprintf("%v: %s", ErrRunInProgress, strategyID),
		}
	}
	defer o.release(strategyID)

	o.logger.WithFields(map[string]interface{}{
		"strategy": strategyID,
		"trigger":  trigger,
	}).Info("Screening run started")

	run := &contracts.ScreeningRun{
		StartedAt:       startTime,
		Trigger:         trigger,
		StrategyID:      strategyID,
		StrategyVersion: strat.Version(),
		Status:          contracts.RunStatusRunning,
		FilterStats:     make(map[int]contracts.FunnelCounter),
	}
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.WithError(err).Error("Failed to create run record")
		return contracts.RunSummary{Success: false, StrategyID: strategyID, Message: err.Error()}
	}

	summary := o.execute(ctx, run, strat)
	o.emitComplete(summary)
	return summary
}

// execute walks the universe for an already-created run record
func (o *Orchestrator) execute(ctx context.Context, run *contracts.ScreeningRun, strat strategy.Strategy) contracts.RunSummary {
	tickers, err := o.collector.Universe(ctx)
	if err != nil {
		return o.finalizeFailed(ctx, run, err)
	}

	run.TotalStocks = len(tickers)
	if err := o.store.SaveRun(ctx, run); err != nil {
		return o.finalizeFailed(ctx, run, err)
	}

	if o.notifier != nil {
		if err := o.notifier.OnRunStart(ctx, run.TotalStocks, strat.Name()); err != nil {
			o.logger.WithError(err).Warn("Start notification failed")
		}
	}

	conditions := strat.Conditions()
	required := strat.RequiredData()
	runDate := run.StartedAt.Truncate(24 * time.Hour)

	passed := make([]contracts.StockRecord, 0)
	buffer := make([]*contracts.ScreeningResult, 0, o.config.FlushEvery)

	for idx, ticker := range tickers {
		// 협조적 취소: 반복 시작 시점에만 확인, 진행 중인 종목은 완료
		if ctx.Err() != nil {
			return o.finalizeFailed(ctx, run, fmt.Errorf("run cancelled: %w", ctx.Err()))
		}

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return o.finalizeFailed(ctx, run, fmt.Errorf("run cancelled: %w", err))
			}
		}

		record, err := o.collector.BuildRecord(ctx, ticker, required)
		if err != nil {
			// 종목 하나의 실패가 전체 실행을 막아선 안 된다
			o.logger.WithError(err).WithStock(ticker.Code).Error("Instrument skipped")
			continue
		}

		ok, detail := strat.ApplyFilters(ctx, record)

		for num, result := range detail {
			counter := run.FilterStats[num]
			if result {
				counter.Passed++
			} else {
				counter.Failed++
			}
			run.FilterStats[num] = counter
		}

		buffer = append(buffer, &contracts.ScreeningResult{
			Record:     *record,
			Date:       runDate,
			StrategyID: run.StrategyID,
			Version:    run.StrategyVersion,
			Passed:     ok,
			Conditions: detail,
		})
		if ok {
			passed = append(passed, *record)
		}

		if len(buffer) >= o.config.FlushEvery {
			o.flush(ctx, run, runDate, conditions, buffer)
			buffer = buffer[:0]
		}

		if (idx+1)%o.config.ProgressEvery == 0 || idx+1 == run.TotalStocks {
			o.emitProgress(strat.Name(), idx+1, run.TotalStocks)
		}
	}

	o.flush(ctx, run, runDate, conditions, buffer)

	run.PassedStocks = len(passed)
	run.Elapsed = time.Since(run.StartedAt)
	run.Status = contracts.RunStatusCompleted
	if err := o.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.WithError(err).Error("Failed to finalize run record")
	}

	if o.notifier != nil {
		if err := o.notifier.OnRunComplete(ctx, passed, run.TotalStocks, run.Elapsed, strat.Name()); err != nil {
			o.logger.WithError(err).Warn("Completion notification failed")
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"strategy": run.StrategyID,
		"passed":   run.PassedStocks,
		"total":    run.TotalStocks,
		"elapsed":  run.Elapsed,
	}).Info("Screening run completed")

	return contracts.RunSummary{
		Success:        true,
		StrategyID:     run.StrategyID,
		StrategyName:   strat.Name(),
		Total:          run.TotalStocks,
		Passed:         run.PassedStocks,
		ElapsedSeconds: run.Elapsed.Seconds(),
	}
}

// flush persists buffered results and the current funnel snapshot
func (o *Orchestrator) flush(ctx context.Context, run *contracts.ScreeningRun, date time.Time, conditions map[int]string, buffer []*contracts.ScreeningResult) {
	ctx = context.WithoutCancel(ctx)

	if len(buffer) > 0 {
		if err := o.store.UpsertResults(ctx, buffer); err != nil {
			o.logger.WithError(err).Error("Result batch upsert failed")
		}
	}

	stats := funnelSnapshot(run, date, conditions)
	if len(stats) > 0 {
		if err := o.store.UpsertFunnelStats(ctx, stats); err != nil {
			o.logger.WithError(err).Error("Funnel stat upsert failed")
		}
	}
}

// finalizeFailed marks the run failed, persists it, and notifies
func (o *Orchestrator) finalizeFailed(ctx context.Context, run *contracts.ScreeningRun, cause error) contracts.RunSummary {
	run.Status = contracts.RunStatusFailed
	run.ErrorMessage = cause.Error()
	run.Elapsed = time.Since(run.StartedAt)

	if err := o.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		o.logger.WithError(err).Error("Failed to persist failed run")
	}
	if o.notifier != nil {
		if err := o.notifier.OnRunError(context.WithoutCancel(ctx), cause.Error()); err != nil {
			o.logger.WithError(err).Warn("Error notification failed")
		}
	}

	o.logger.WithError(cause).WithStrategy(run.StrategyID).Error("Screening run failed")

	return contracts.RunSummary{
		Success:    false,
		StrategyID: run.StrategyID,
		Total:      run.TotalStocks,
		Message:    cause.Error(),
	}
}

func (o *Orchestrator) acquire(strategyID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[strategyID] {
		return false
	}
	o.active[strategyID] = true
	return true
}

func (o *Orchestrator) release(strategyID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, strategyID)
}

// Running reports whether a run is in flight for the strategy
func (o *Orchestrator) Running(strategyID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[strategyID]
}

func (o *Orchestrator) emitProgress(strategyName string, current, total int) {
	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(current)/float64(total)*1000) / 10
	}
	progress := contracts.Progress{
		Current:  current,
		Total:    total,
		Percent:  percent,
		Strategy: strategyName,
	}

	o.mu.Lock()
	fns := o.progressFns
	o.mu.Unlock()
	for _, fn := range fns {
		fn(progress)
	}

	o.logger.WithFields(map[string]interface{}{
		"current": current,
		"total":   total,
		"percent": percent,
	}).Debug("Screening progress")
}

func (o *Orchestrator) emitComplete(summary contracts.RunSummary) {
	o.mu.Lock()
	fns := o.completeFns
	o.mu.Unlock()
	for _, fn := range fns {
		fn(summary)
	}
}

// funnelSnapshot converts the run's counters into per-condition stats for
// the run date. Re-running the same date supersedes the previous snapshot.
func funnelSnapshot(run *contracts.ScreeningRun, date time.Time, conditions map[int]string) []contracts.FunnelStat {
	nums := make([]int, 0, len(run.FilterStats))
	for num := range run.FilterStats {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	stats := make([]contracts.FunnelStat, 0, len(nums))
	for _, num := range nums {
		counter := run.FilterStats[num]
		stats = append(stats, contracts.FunnelStat{
			Date:            date,
			ConditionNumber: num,
			ConditionName:   conditions[num],
			Evaluated:       counter.Evaluated(),
			Passed:          counter.Passed,
			Failed:          counter.Failed,
		})
	}
	return stats
}
