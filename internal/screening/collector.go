package screening

import (
	"context"
	"fmt"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/metrics"
	"github.com/wonny/sevensplit/pkg/logger"
)

// Sanity ceilings for valuation ratios. Upstream feeds occasionally deliver
// garbage (PER in the tens of thousands on near-zero earnings); anything
// outside these ranges is discarded to nil rather than propagated.
const (
	maxSanePER = 1000.0
	maxSanePBR = 100.0
)

// Collector normalizes the heterogeneous external sources into one
// canonical StockRecord per instrument. Each source is optional based on
// the strategy's required-data set, and each tolerates upstream failure by
// degrading to an empty shape — a single outage must not abort the run.
// ⭐ SSOT: 종목 레코드 조립은 이 타입에서만
type Collector struct {
	universe   contracts.UniverseProvider
	market     contracts.MarketDataProvider
	fallback   contracts.MarketDataProvider // secondary source, one hop max
	financial  contracts.FinancialDataProvider
	disclosure contracts.DisclosureProvider
	ownership  contracts.OwnershipProvider
	logger     *logger.Logger
}

// NewCollector wires the provider set. fallback may be nil when no
// secondary market source is configured.
func NewCollector(
	universe contracts.UniverseProvider,
	market contracts.MarketDataProvider,
	fallback contracts.MarketDataProvider,
	financial contracts.FinancialDataProvider,
	disclosure contracts.DisclosureProvider,
	ownership contracts.OwnershipProvider,
	log *logger.Logger,
) *Collector {
	return &Collector{
		universe:   universe,
		market:     market,
		fallback:   fallback,
		financial:  financial,
		disclosure: disclosure,
		ownership:  ownership,
		logger:     log.WithField("module", "collector"),
	}
}

// Universe lists the instruments to screen in deterministic order.
// An empty universe is fatal to a run.
func (c *Collector) Universe(ctx context.Context) ([]contracts.Ticker, error) {
	tickers, err := c.universe.ListUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("list universe: %w", err)
	}
	if len(tickers) == 0 {
		return nil, ErrEmptyUniverse
	}
	return tickers, nil
}

// BuildRecord assembles the canonical record for one instrument, fetching
// only the data kinds the active strategy requires and computing the
// derived metrics on top.
func (c *Collector) BuildRecord(ctx context.Context, ticker contracts.Ticker, required contracts.DataSet) (*contracts.StockRecord, error) {
	record := &contracts.StockRecord{
		Code:   ticker.Code,
		Name:   ticker.Name,
		Market: ticker.Market,
		Status: ticker.Status,
		PCR:    metrics.RatioSentinel,
		PSR:    metrics.RatioSentinel,
	}

	market := c.collectMarket(ctx, ticker.Code, required)
	record.MarketCap = market.MarketCap
	record.TradingValue = market.TradingValue
	record.PER = saneRatio(market.PER, maxSanePER)
	record.PBR = saneRatio(market.PBR, maxSanePBR)
	record.DivYield = market.DivYield

	fin := c.collectFinancials(ctx, ticker.Code, required)
	record.DebtRatio = contracts.Latest(fin.DebtRatio)
	record.CurrentRatio = contracts.Latest(fin.CurrentRatio)
	record.NetIncome3Y = fin.NetIncome
	record.DividendHistory = fin.DividendHistory
	record.DividendPayout = fin.DividendPayout

	// 파생 지표 계산
	record.RetentionRatio = metrics.RetentionRatio(fin.Capital, fin.CapitalSurplus, fin.RetainedEarnings)
	record.ROEAvg3Y = metrics.ROEAverage3Y(fin.ROE)
	record.FScore = metrics.FScore(fin)
	if cfo := contracts.Latest(fin.CFO); cfo != nil {
		record.PCR = metrics.PCR(float64(record.MarketCap), *cfo)
	}
	if revenue := contracts.Latest(fin.Revenue); revenue != nil {
		record.PSR = metrics.PSR(float64(record.MarketCap), *revenue)
	}

	if required.Has(contracts.DataDisclosure) {
		info := c.collectDisclosures(ctx, ticker.Code)
		record.HasCBBW = info.HasCBBW
		record.HasPaidIncrease = info.HasPaidIncrease
	}

	if required.Has(contracts.DataMajorShareholder) {
		if ratio, err := c.ownership.FetchOwnership(ctx, ticker.Code); err != nil {
			c.logger.WithError(err).WithStock(ticker.Code).Debug("Ownership fetch failed")
		} else {
			record.MajorShareholderRatio = contracts.Float(ratio)
		}
	}

	return record, nil
}

// collectMarket fetches the quote snapshot and fills PER/PBR gaps from the
// fallback source. Exactly one fallback hop is attempted; missing after
// that stays nil.
func (c *Collector) collectMarket(ctx context.Context, code string, required contracts.DataSet) *contracts.MarketData {
	empty := &contracts.MarketData{}
	if !required.Has(contracts.DataMarket) {
		return empty
	}

	data, err := c.market.FetchMarket(ctx, code)
	if err != nil {
		c.logger.WithError(err).WithStock(code).Warn("Market data fetch failed")
		data = empty
	}

	// 이상치는 폴백 판단 전에 버린다. 폴백 값이 빈 자리를 채울 수 있도록.
	data.PER = saneRatio(data.PER, maxSanePER)
	data.PBR = saneRatio(data.PBR, maxSanePBR)

	if c.fallback == nil {
		return data
	}
	if data.PER != nil && data.PBR != nil {
		return data
	}

	alt, err := c.fallback.FetchMarket(ctx, code)
	if err != nil {
		c.logger.WithError(err).WithStock(code).Debug("Fallback market source failed")
		return data
	}
	if data.PER == nil {
		data.PER = saneRatio(alt.PER, maxSanePER)
	}
	if data.PBR == nil {
		data.PBR = saneRatio(alt.PBR, maxSanePBR)
	}
	if data.DivYield == nil {
		data.DivYield = alt.DivYield
	}
	return data
}

func (c *Collector) collectFinancials(ctx context.Context, code string, required contracts.DataSet) *contracts.FinancialData {
	if !required.Has(contracts.DataFinancial) {
		return &contracts.FinancialData{}
	}

	data, err := c.financial.FetchFinancials(ctx, code)
	if err != nil {
		c.logger.WithError(err).WithStock(code).Warn("Financial data fetch failed")
		return &contracts.FinancialData{}
	}
	return data
}

func (c *Collector) collectDisclosures(ctx context.Context, code string) *contracts.DisclosureInfo {
	info, err := c.disclosure.FetchDisclosures(ctx, code)
	if err != nil {
		c.logger.WithError(err).WithStock(code).Debug("Disclosure fetch failed")
		return &contracts.DisclosureInfo{}
	}
	return info
}

// saneRatio discards nil, non-positive, and above-ceiling values to nil
func saneRatio(v *float64, ceiling float64) *float64 {
	if v == nil || *v <= 0 || *v > ceiling {
		return nil
	}
	return v
}
