package screening

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/strategy"
	"github.com/wonny/sevensplit/pkg/config"
	"github.com/wonny/sevensplit/pkg/logger"
)

// ─── fakes ───────────────────────────────────────────────────────────────

func testLogger() *logger.Logger {
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		Database: config.DatabaseConfig{URL: "dummy"},
	}
	return logger.New(cfg)
}

// mapSettings is an in-memory SettingsProvider for tests
type mapSettings map[string]string

func (m mapSettings) Get(_ context.Context, key, def string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func (m mapSettings) GetInt(ctx context.Context, key string, def int64) int64 {
	v, err := strconv.ParseInt(m.Get(ctx, key, ""), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func (m mapSettings) GetFloat(ctx context.Context, key string, def float64) float64 {
	v, err := strconv.ParseFloat(m.Get(ctx, key, ""), 64)
	if err != nil {
		return def
	}
	return v
}

func (m mapSettings) GetBool(ctx context.Context, key string, def bool) bool {
	v, err := strconv.ParseBool(m.Get(ctx, key, ""))
	if err != nil {
		return def
	}
	return v
}

type fakeUniverse struct {
	tickers []contracts.Ticker
	err     error
	block   chan struct{} // when set, ListUniverse waits until closed
	called  chan struct{} // when set, closed on first call
	once    sync.Once
}

func (f *fakeUniverse) ListUniverse(ctx context.Context) ([]contracts.Ticker, error) {
	if f.called != nil {
		f.once.Do(func() { close(f.called) })
	}
	if f.block != nil {
		<-f.block
	}
	return f.tickers, f.err
}

type fakeMarket struct {
	data  map[string]*contracts.MarketData
	err   error
	calls int
}

func (f *fakeMarket) FetchMarket(ctx context.Context, code string) (*contracts.MarketData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.data[code]; ok {
		return d, nil
	}
	return &contracts.MarketData{}, nil
}

type fakeFinancial struct {
	data  map[string]*contracts.FinancialData
	err   error
	calls int
}

func (f *fakeFinancial) FetchFinancials(ctx context.Context, code string) (*contracts.FinancialData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if d, ok := f.data[code]; ok {
		return d, nil
	}
	return &contracts.FinancialData{}, nil
}

type fakeDisclosure struct {
	info  contracts.DisclosureInfo
	err   error
	calls int
}

func (f *fakeDisclosure) FetchDisclosures(ctx context.Context, code string) (*contracts.DisclosureInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	info := f.info
	return &info, nil
}

type fakeOwnership struct {
	ratio float64
	err   error
	calls int
}

func (f *fakeOwnership) FetchOwnership(ctx context.Context, code string) (float64, error) {
	f.calls++
	return f.ratio, f.err
}

// fakeStore records everything the orchestrator persists
type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	savedRuns   []contracts.ScreeningRun
	resultFlush [][]*contracts.ScreeningResult
	funnelFlush [][]contracts.FunnelStat
	saveErr     error
}

func (f *fakeStore) SaveRun(ctx context.Context, run *contracts.ScreeningRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if run.ID == 0 {
		f.nextID++
		run.ID = f.nextID
	}
	f.savedRuns = append(f.savedRuns, *run)
	return nil
}

func (f *fakeStore) UpsertResults(ctx context.Context, results []*contracts.ScreeningResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]*contracts.ScreeningResult, len(results))
	copy(batch, results)
	f.resultFlush = append(f.resultFlush, batch)
	return nil
}

func (f *fakeStore) UpsertFunnelStats(ctx context.Context, stats []contracts.FunnelStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funnelFlush = append(f.funnelFlush, stats)
	return nil
}

func (f *fakeStore) lastRun(t *testing.T) contracts.ScreeningRun {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.savedRuns)
	return f.savedRuns[len(f.savedRuns)-1]
}

func (f *fakeStore) totalResults() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, batch := range f.resultFlush {
		total += len(batch)
	}
	return total
}

// fakeNotifier records lifecycle events
type fakeNotifier struct {
	mu        sync.Mutex
	starts    int
	completes int
	errors    []string
}

func (f *fakeNotifier) OnRunStart(ctx context.Context, total int, strategyName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeNotifier) OnRunComplete(ctx context.Context, passed []contracts.StockRecord, total int, elapsed time.Duration, strategyName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	return nil
}

func (f *fakeNotifier) OnRunError(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
	return nil
}

// minCapStrategy passes instruments whose market cap clears a threshold.
// Two conditions so funnel stats have a shape worth asserting on.
type minCapStrategy struct {
	threshold int64
}

func (s *minCapStrategy) ID() string          { return "min_cap" }
func (s *minCapStrategy) Name() string        { return "시가총액 하한" }
func (s *minCapStrategy) Description() string { return "테스트용 시가총액 필터" }
func (s *minCapStrategy) Category() string    { return "test" }
func (s *minCapStrategy) Version() string     { return "1.0.0" }

func (s *minCapStrategy) RequiredData() contracts.DataSet {
	return contracts.NewDataSet(contracts.DataMarket)
}

func (s *minCapStrategy) Conditions() map[int]string {
	return map[int]string{
		1: "시가총액 하한",
		2: "거래대금 양수",
	}
}

func (s *minCapStrategy) ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult) {
	detail := contracts.ConditionResult{
		1: record.MarketCap >= s.threshold,
		2: record.TradingValue > 0,
	}
	return detail.AllPassed(), detail
}

// ─── harness ─────────────────────────────────────────────────────────────

type orchFixture struct {
	orch     *Orchestrator
	universe *fakeUniverse
	market   *fakeMarket
	store    *fakeStore
	notifier *fakeNotifier
}

func newOrchFixture(t *testing.T, tickerCount int, cfg Config) *orchFixture {
	t.Helper()
	log := testLogger()

	tickers := make([]contracts.Ticker, 0, tickerCount)
	market := &fakeMarket{data: make(map[string]*contracts.MarketData)}
	for i := 0; i < tickerCount; i++ {
		code := strconv.Itoa(100000 + i)
		tickers = append(tickers, contracts.Ticker{Code: code, Name: "종목" + code, Market: contracts.MarketKOSPI})
		// odd index → below threshold
		marketCap := int64(2_000 * 100_000_000)
		if i%2 == 1 {
			marketCap = 500 * 100_000_000
		}
		market.data[code] = &contracts.MarketData{MarketCap: marketCap, TradingValue: 1_000_000_000}
	}

	universe := &fakeUniverse{tickers: tickers}
	collector := NewCollector(universe, market, nil, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{}, log)

	settings := mapSettings{}
	registry := strategy.NewRegistry(settings)
	registry.Register(&minCapStrategy{threshold: 1_000 * 100_000_000})

	st := &fakeStore{}
	notifier := &fakeNotifier{}
	orch := NewOrchestrator(registry, collector, settings, st, notifier, cfg, log)

	return &orchFixture{orch: orch, universe: universe, market: market, store: st, notifier: notifier}
}

func smallConfig() Config {
	return Config{
		DefaultStrategy: "min_cap",
		ProgressEvery:   10,
		FlushEvery:      100,
	}
}

// ─── tests ───────────────────────────────────────────────────────────────

func TestStartRunUnknownStrategy(t *testing.T) {
	fx := newOrchFixture(t, 5, smallConfig())

	summary := fx.orch.StartRun(context.Background(), "no_such_strategy", contracts.TriggerManual)

	assert.False(t, summary.Success)
	assert.Contains(t, summary.Message, "no_such_strategy")
	assert.Empty(t, fx.store.savedRuns, "no run record for an unresolvable strategy")
}

func TestStartRunDefaultStrategyFromSettings(t *testing.T) {
	fx := newOrchFixture(t, 4, smallConfig())

	summary := fx.orch.StartRun(context.Background(), "", contracts.TriggerScheduled)

	require.True(t, summary.Success)
	assert.Equal(t, "min_cap", summary.StrategyID)
	assert.Equal(t, contracts.TriggerScheduled, fx.store.lastRun(t).Trigger)
}

func TestStartRunHappyPath(t *testing.T) {
	fx := newOrchFixture(t, 25, smallConfig())

	var progresses []contracts.Progress
	var completes []contracts.RunSummary
	fx.orch.OnProgress(func(p contracts.Progress) { progresses = append(progresses, p) })
	fx.orch.OnComplete(func(s contracts.RunSummary) { completes = append(completes, s) })

	summary := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)

	require.True(t, summary.Success)
	assert.Equal(t, 25, summary.Total)
	assert.Equal(t, 13, summary.Passed, "even-index instruments clear the cap threshold")

	run := fx.store.lastRun(t)
	assert.Equal(t, contracts.RunStatusCompleted, run.Status)
	assert.Equal(t, 25, run.TotalStocks)
	assert.Equal(t, 13, run.PassedStocks)

	// every instrument persisted exactly once
	assert.Equal(t, 25, fx.store.totalResults())

	// progress at 10, 20 and the final instrument
	require.Len(t, progresses, 3)
	assert.Equal(t, 10, progresses[0].Current)
	assert.Equal(t, 20, progresses[1].Current)
	assert.Equal(t, 25, progresses[2].Current)
	assert.InDelta(t, 100.0, progresses[2].Percent, 0.01)

	require.Len(t, completes, 1)
	assert.Equal(t, summary, completes[0])

	assert.Equal(t, 1, fx.notifier.starts)
	assert.Equal(t, 1, fx.notifier.completes)
	assert.Empty(t, fx.notifier.errors)
}

func TestStartRunFunnelStats(t *testing.T) {
	fx := newOrchFixture(t, 20, smallConfig())

	summary := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)
	require.True(t, summary.Success)

	require.NotEmpty(t, fx.store.funnelFlush)
	final := fx.store.funnelFlush[len(fx.store.funnelFlush)-1]
	require.Len(t, final, 2)

	// ordered by condition number, each counts the full universe
	for i, stat := range final {
		assert.Equal(t, i+1, stat.ConditionNumber)
		assert.Equal(t, 20, stat.Evaluated)
		assert.Equal(t, stat.Evaluated, stat.Passed+stat.Failed)
	}
	assert.Equal(t, "시가총액 하한", final[0].ConditionName)
	assert.Equal(t, 10, final[0].Passed)
	assert.Equal(t, 20, final[1].Passed, "trading value is positive for every fixture instrument")
}

func TestStartRunFlushCadence(t *testing.T) {
	cfg := smallConfig()
	cfg.FlushEvery = 10
	fx := newOrchFixture(t, 25, cfg)

	summary := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)
	require.True(t, summary.Success)

	require.Len(t, fx.store.resultFlush, 3)
	assert.Len(t, fx.store.resultFlush[0], 10)
	assert.Len(t, fx.store.resultFlush[1], 10)
	assert.Len(t, fx.store.resultFlush[2], 5)
}

func TestStartRunEmptyUniverse(t *testing.T) {
	fx := newOrchFixture(t, 0, smallConfig())
	fx.universe.tickers = nil

	summary := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)

	assert.False(t, summary.Success)
	assert.Contains(t, summary.Message, "universe")

	// the run record must not be left dangling as running
	run := fx.store.lastRun(t)
	assert.Equal(t, contracts.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)

	require.Len(t, fx.notifier.errors, 1)
	assert.Equal(t, 0, fx.notifier.completes)
}

func TestStartRunCancellation(t *testing.T) {
	fx := newOrchFixture(t, 30, smallConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := fx.orch.StartRun(ctx, "min_cap", contracts.TriggerManual)

	assert.False(t, summary.Success)
	assert.Contains(t, summary.Message, "cancelled")
	assert.Equal(t, contracts.RunStatusFailed, fx.store.lastRun(t).Status)
}

func TestStartRunConcurrentGuard(t *testing.T) {
	fx := newOrchFixture(t, 5, smallConfig())
	fx.universe.block = make(chan struct{})
	fx.universe.called = make(chan struct{})

	done := make(chan contracts.RunSummary, 1)
	go func() {
		done <- fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)
	}()

	<-fx.universe.called
	assert.True(t, fx.orch.Running("min_cap"))

	second := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "already in progress")

	close(fx.universe.block)
	first := <-done
	assert.True(t, first.Success)
	assert.False(t, fx.orch.Running("min_cap"))
}

func TestStartRunPersistsRunBeforeWalking(t *testing.T) {
	fx := newOrchFixture(t, 3, smallConfig())

	summary := fx.orch.StartRun(context.Background(), "min_cap", contracts.TriggerManual)
	require.True(t, summary.Success)

	// first save creates the record in running state with an assigned id
	first := fx.store.savedRuns[0]
	assert.Equal(t, contracts.RunStatusRunning, first.Status)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "1.0.0", first.StrategyVersion)
}

func TestFunnelSnapshotOrdering(t *testing.T) {
	run := &contracts.ScreeningRun{
		StartedAt: time.Now(),
		FilterStats: map[int]contracts.FunnelCounter{
			3: {Passed: 1, Failed: 2},
			1: {Passed: 3, Failed: 0},
			2: {Passed: 2, Failed: 1},
		},
	}
	conditions := map[int]string{1: "a", 2: "b", 3: "c"}

	stats := funnelSnapshot(run, run.StartedAt.Truncate(24*time.Hour), conditions)

	require.Len(t, stats, 3)
	for i, stat := range stats {
		assert.Equal(t, i+1, stat.ConditionNumber)
		assert.Equal(t, conditions[i+1], stat.ConditionName)
		assert.Equal(t, 3, stat.Evaluated)
	}
}
