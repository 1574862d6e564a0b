package strategy

import (
	"context"

	"github.com/wonny/sevensplit/internal/contracts"
)

// Dividend strategy defaults. 배당주는 중소형주도 포함하므로 시총/거래대금
// 하한이 체크리스트 전략보다 낮다.
const (
	defDivMinMarketCapEok    = 500
	defDivMinYield           = 5.0
	defDivPayoutMin          = 20.0
	defDivPayoutMax          = 80.0
	defDivMaxDebtRatio       = 200.0
	defDivMinTradingValueEok = 5
)

// Dividend screens for stable, high-yield dividend payers
type Dividend struct {
	settings contracts.SettingsProvider
}

// NewDividend creates the dividend strategy
func NewDividend(settings contracts.SettingsProvider) *Dividend {
	return &Dividend{settings: settings}
}

func (s *Dividend) ID() string       { return "dividend_strategy" }
func (s *Dividend) Name() string     { return "배당주 전략" }
func (s *Dividend) Category() string { return "dividend" }
func (s *Dividend) Version() string  { return "1.0.0" }

func (s *Dividend) Description() string {
	return "안정적이고 높은 배당수익을 제공하는 우량 배당주를 선별합니다."
}

func (s *Dividend) RequiredData() contracts.DataSet {
	return contracts.NewDataSet(contracts.DataMarket, contracts.DataFinancial)
}

func (s *Dividend) Conditions() map[int]string {
	return map[int]string{
		1: "관리종목 제외",
		2: "시가총액 500억 이상",
		3: "배당수익률 5% 이상",
		4: "배당성향 20-80%",
		5: "3년 연속 배당",
		6: "부채비율 200% 미만",
		7: "3년 연속 흑자",
		8: "거래대금 5억 이상",
	}
}

// ApplyFilters evaluates all eight dividend conditions
func (s *Dividend) ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult) {
	minMarketCap := s.settings.GetInt(ctx, "dividend_min_market_cap", defDivMinMarketCapEok) * eok
	minYield := s.settings.GetFloat(ctx, "dividend_min_yield", defDivMinYield)
	payoutMin := s.settings.GetFloat(ctx, "dividend_payout_min", defDivPayoutMin)
	payoutMax := s.settings.GetFloat(ctx, "dividend_payout_max", defDivPayoutMax)
	maxDebtRatio := s.settings.GetFloat(ctx, "dividend_max_debt_ratio", defDivMaxDebtRatio)
	minTradingValue := s.settings.GetInt(ctx, "dividend_min_trading_value", defDivMinTradingValueEok) * eok

	detail := make(contracts.ConditionResult, 8)

	detail[1] = !record.IsManaged() && !record.IsSuspended() && !record.IsDelisting()
	detail[2] = record.MarketCap >= minMarketCap
	detail[3] = geFloat(record.DivYield, minYield)

	// 4. 배당성향 — 데이터가 없으면 일단 통과 (보수적으로 제외하면 배당
	// 데이터 커버리지가 낮은 종목이 전부 탈락한다)
	if record.DividendPayout != nil {
		detail[4] = inRange(record.DividendPayout, payoutMin, payoutMax)
	} else {
		detail[4] = true
	}

	// 5. 3년 연속 배당 — 히스토리가 없으면 현재 수익률로 판단
	if len(record.DividendHistory) >= 3 {
		detail[5] = allPositive(record.DividendHistory[:3])
	} else {
		detail[5] = record.DivYield != nil && *record.DivYield > 0
	}

	detail[6] = ltFloat(record.DebtRatio, maxDebtRatio)
	detail[7] = len(record.NetIncome3Y) >= 3 && allPositive(record.NetIncome3Y[:3])
	detail[8] = record.TradingValue >= minTradingValue

	return detail.AllPassed(), detail
}

func allPositive(values []float64) bool {
	for _, v := range values {
		if v <= 0 {
			return false
		}
	}
	return true
}
