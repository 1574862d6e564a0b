package contracts

import (
	"context"
	"time"
)

// UniverseProvider lists the screening universe.
// The ordering must be deterministic so funnel stats are reproducible.
// ⭐ SSOT: 전체 종목 목록 조회 인터페이스
type UniverseProvider interface {
	ListUniverse(ctx context.Context) ([]Ticker, error)
}

// MarketDataProvider fetches the quote snapshot for one instrument
type MarketDataProvider interface {
	FetchMarket(ctx context.Context, code string) (*MarketData, error)
}

// FinancialDataProvider fetches statement data for one instrument
type FinancialDataProvider interface {
	FetchFinancials(ctx context.Context, code string) (*FinancialData, error)
}

// DisclosureProvider fetches trailing-year disclosure red flags
type DisclosureProvider interface {
	FetchDisclosures(ctx context.Context, code string) (*DisclosureInfo, error)
}

// OwnershipProvider fetches the largest shareholder's stake in percent
type OwnershipProvider interface {
	FetchOwnership(ctx context.Context, code string) (float64, error)
}

// SettingsProvider resolves operator-tunable thresholds at evaluation time.
// A missing key falls back to the caller-supplied default.
// ⭐ SSOT: 전략 임계치는 이 인터페이스를 통해서만 조회
type SettingsProvider interface {
	Get(ctx context.Context, key, def string) string
	GetInt(ctx context.Context, key string, def int64) int64
	GetFloat(ctx context.Context, key string, def float64) float64
	GetBool(ctx context.Context, key string, def bool) bool
}

// PersistenceStore receives screening output. The core issues data only;
// transactions and sessions are the store's concern.
type PersistenceStore interface {
	UpsertResults(ctx context.Context, results []*ScreeningResult) error
	SaveRun(ctx context.Context, run *ScreeningRun) error
	UpsertFunnelStats(ctx context.Context, stats []FunnelStat) error
}

// NotificationSink receives run lifecycle events
type NotificationSink interface {
	OnRunStart(ctx context.Context, total int, strategyName string) error
	OnRunComplete(ctx context.Context, passed []StockRecord, total int, elapsed time.Duration, strategyName string) error
	OnRunError(ctx context.Context, message string) error
}
