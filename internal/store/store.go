package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sevensplit/internal/contracts"
)

// Store implements contracts.PersistenceStore on PostgreSQL.
// ⭐ SSOT: 스크리닝 결과 저장은 여기서만
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store instance
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying database pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// UpsertResults saves per-instrument outcomes, keyed by (code, date, strategy).
// Re-running a strategy on the same day replaces the previous rows.
func (s *Store) UpsertResults(ctx context.Context, results []*contracts.ScreeningResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO screener.results (
			stock_code, screen_date, strategy_id, strategy_version,
			stock_name, market, passed, conditions,
			market_cap, trading_value, per, pbr, div_yield, fscore, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (stock_code, screen_date, strategy_id) DO UPDATE SET
			strategy_version = EXCLUDED.strategy_version,
			stock_name = EXCLUDED.stock_name,
			market = EXCLUDED.market,
			passed = EXCLUDED.passed,
			conditions = EXCLUDED.conditions,
			market_cap = EXCLUDED.market_cap,
			trading_value = EXCLUDED.trading_value,
			per = EXCLUDED.per,
			pbr = EXCLUDED.pbr,
			div_yield = EXCLUDED.div_yield,
			fscore = EXCLUDED.fscore,
			created_at = NOW()`

	for _, r := range results {
		conditionsJSON, err := json.Marshal(r.Conditions)
		if err != nil {
			return fmt.Errorf("marshal conditions for %s: %w", r.Record.Code, err)
		}
		batch.Queue(query,
			r.Record.Code, r.Date, r.StrategyID, r.Version,
			r.Record.Name, string(r.Record.Market), r.Passed, conditionsJSON,
			r.Record.MarketCap, r.Record.TradingValue,
			r.Record.PER, r.Record.PBR, r.Record.DivYield, r.Record.FScore,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert results: %w", err)
		}
	}

	return nil
}

// SaveRun inserts a new run record or updates an existing one.
// A zero ID means insert; the generated ID is written back into run.
func (s *Store) SaveRun(ctx context.Context, run *contracts.ScreeningRun) error {
	statsJSON, err := json.Marshal(run.FilterStats)
	if err != nil {
		return fmt.Errorf("marshal filter stats: %w", err)
	}

	if run.ID == 0 {
		query := `
			INSERT INTO screener.runs (
				started_at, trigger_type, strategy_id, strategy_version,
				total_stocks, passed_stocks, filter_stats, elapsed_ms, status, error_message
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`

		err := s.pool.QueryRow(ctx, query,
			run.StartedAt, string(run.Trigger), run.StrategyID, run.StrategyVersion,
			run.TotalStocks, run.PassedStocks, statsJSON,
			run.Elapsed.Milliseconds(), string(run.Status), nullString(run.ErrorMessage),
		).Scan(&run.ID)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	}

	query := `
		UPDATE screener.runs SET
			total_stocks = $2,
			passed_stocks = $3,
			filter_stats = $4,
			elapsed_ms = $5,
			status = $6,
			error_message = $7
		WHERE id = $1`

	_, err = s.pool.Exec(ctx, query,
		run.ID, run.TotalStocks, run.PassedStocks, statsJSON,
		run.Elapsed.Milliseconds(), string(run.Status), nullString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	return nil
}

// UpsertFunnelStats saves the cumulative funnel state, keyed by (date, condition).
// Later snapshots within the same run supersede earlier ones.
func (s *Store) UpsertFunnelStats(ctx context.Context, stats []contracts.FunnelStat) error {
	if len(stats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO screener.funnel_stats (
			stat_date, condition_number, condition_name, evaluated, passed, failed, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (stat_date, condition_number) DO UPDATE SET
			condition_name = EXCLUDED.condition_name,
			evaluated = EXCLUDED.evaluated,
			passed = EXCLUDED.passed,
			failed = EXCLUDED.failed,
			updated_at = NOW()`

	for _, st := range stats {
		batch.Queue(query,
			st.Date, st.ConditionNumber, st.ConditionName,
			st.Evaluated, st.Passed, st.Failed,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stats {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert funnel stats: %w", err)
		}
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(ctx context.Context, id int64) (*contracts.ScreeningRun, error) {
	query := `
		SELECT id, started_at, trigger_type, strategy_id, strategy_version,
		       total_stocks, passed_stocks, filter_stats, elapsed_ms, status,
		       COALESCE(error_message, '')
		FROM screener.runs
		WHERE id = $1`

	return scanRun(s.pool.QueryRow(ctx, query, id))
}

// ListRuns retrieves the most recent runs, newest first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*contracts.ScreeningRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, trigger_type, strategy_id, strategy_version,
		       total_stocks, passed_stocks, filter_stats, elapsed_ms, status,
		       COALESCE(error_message, '')
		FROM screener.runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*contracts.ScreeningRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PassedStock is one row of the latest-passed view
type PassedStock struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Market     string    `json:"market"`
	MarketCap  int64     `json:"market_cap"`
	PER        *float64  `json:"per,omitempty"`
	PBR        *float64  `json:"pbr,omitempty"`
	DivYield   *float64  `json:"div_yield,omitempty"`
	FScore     int       `json:"fscore"`
	ScreenDate time.Time `json:"screen_date"`
	StrategyID string    `json:"strategy_id"`
}

// ListPassedByDate retrieves stocks that passed a strategy on a given date,
// largest market cap first
func (s *Store) ListPassedByDate(ctx context.Context, date time.Time, strategyID string) ([]PassedStock, error) {
	query := `
		SELECT stock_code, stock_name, market, market_cap, per, pbr, div_yield, fscore,
		       screen_date, strategy_id
		FROM screener.results
		WHERE screen_date = $1 AND strategy_id = $2 AND passed = true
		ORDER BY market_cap DESC`

	rows, err := s.pool.Query(ctx, query, date, strategyID)
	if err != nil {
		return nil, fmt.Errorf("list passed: %w", err)
	}
	defer rows.Close()

	var stocks []PassedStock
	for rows.Next() {
		var p PassedStock
		if err := rows.Scan(
			&p.Code, &p.Name, &p.Market, &p.MarketCap,
			&p.PER, &p.PBR, &p.DivYield, &p.FScore,
			&p.ScreenDate, &p.StrategyID,
		); err != nil {
			return nil, fmt.Errorf("scan passed stock: %w", err)
		}
		stocks = append(stocks, p)
	}
	return stocks, rows.Err()
}

// LatestScreenDate returns the most recent date with stored results for a strategy
func (s *Store) LatestScreenDate(ctx context.Context, strategyID string) (time.Time, error) {
	var date *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(screen_date) FROM screener.results WHERE strategy_id = $1`,
		strategyID,
	).Scan(&date)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest screen date: %w", err)
	}
	if date == nil {
		return time.Time{}, nil
	}
	return *date, nil
}

// ListFunnelStats retrieves the funnel snapshot for a date, by condition number
func (s *Store) ListFunnelStats(ctx context.Context, date time.Time) ([]contracts.FunnelStat, error) {
	query := `
		SELECT stat_date, condition_number, condition_name, evaluated, passed, failed
		FROM screener.funnel_stats
		WHERE stat_date = $1
		ORDER BY condition_number`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list funnel stats: %w", err)
	}
	defer rows.Close()

	var stats []contracts.FunnelStat
	for rows.Next() {
		var st contracts.FunnelStat
		if err := rows.Scan(
			&st.Date, &st.ConditionNumber, &st.ConditionName,
			&st.Evaluated, &st.Passed, &st.Failed,
		); err != nil {
			return nil, fmt.Errorf("scan funnel stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// DeleteOlderThan removes results and funnel stats older than the retention
// window. Run history is kept. Returns the number of result rows removed.
func (s *Store) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM screener.results WHERE screen_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old results: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM screener.funnel_stats WHERE stat_date < $1`, cutoff); err != nil {
		return tag.RowsAffected(), fmt.Errorf("delete old funnel stats: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*contracts.ScreeningRun, error) {
	var (
		run       contracts.ScreeningRun
		trigger   string
		status    string
		statsJSON []byte
		elapsedMS int64
	)
	err := row.Scan(
		&run.ID, &run.StartedAt, &trigger, &run.StrategyID, &run.StrategyVersion,
		&run.TotalStocks, &run.PassedStocks, &statsJSON, &elapsedMS, &status,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Trigger = contracts.TriggerType(trigger)
	run.Status = contracts.RunStatus(status)
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &run.FilterStats); err != nil {
			return nil, fmt.Errorf("unmarshal filter stats: %w", err)
		}
	}
	return &run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
