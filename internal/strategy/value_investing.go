package strategy

import (
	"context"

	"github.com/wonny/sevensplit/internal/contracts"
)

// Value strategy defaults, 벤저민 그레이엄식 저평가 우량주 기준
const (
	defValMinMarketCapEok    = 300
	defValMaxPER             = 15.0
	defValMinPBR             = 0.3
	defValMaxPBR             = 1.5
	defValMaxDebtRatio       = 200.0
	defValMinCurrentRatio    = 150.0
	defValMinROE             = 8.0
	defValMinProfitYears     = 2
	defValMinTradingValueEok = 3
)

// ValueInvesting screens for undervalued quality stocks
type ValueInvesting struct {
	settings contracts.SettingsProvider
}

// NewValueInvesting creates the value strategy
func NewValueInvesting(settings contracts.SettingsProvider) *ValueInvesting {
	return &ValueInvesting{settings: settings}
}

func (s *ValueInvesting) ID() string       { return "value_investing" }
func (s *ValueInvesting) Name() string     { return "가치투자 전략" }
func (s *ValueInvesting) Category() string { return "value" }
func (s *ValueInvesting) Version() string  { return "1.0.0" }

func (s *ValueInvesting) Description() string {
	return "낮은 PER/PBR에 재무 건전성을 갖춘 저평가 우량주를 선별합니다."
}

func (s *ValueInvesting) RequiredData() contracts.DataSet {
	return contracts.NewDataSet(contracts.DataMarket, contracts.DataFinancial)
}

func (s *ValueInvesting) Conditions() map[int]string {
	return map[int]string{
		1:  "관리종목 제외",
		2:  "시가총액 300억 이상",
		3:  "PER 0-15 (저평가)",
		4:  "PBR 0.3-1.5 (저평가)",
		5:  "부채비율 200% 미만",
		6:  "유동비율 150% 이상",
		7:  "ROE 8% 이상",
		8:  "3년 중 2년 이상 흑자",
		9:  "거래대금 3억 이상",
		10: "배당 지급 실적",
	}
}

// ApplyFilters evaluates all ten value conditions
func (s *ValueInvesting) ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult) {
	minMarketCap := s.settings.GetInt(ctx, "value_min_market_cap", defValMinMarketCapEok) * eok
	maxPER := s.settings.GetFloat(ctx, "value_max_per", defValMaxPER)
	minPBR := s.settings.GetFloat(ctx, "value_min_pbr", defValMinPBR)
	maxPBR := s.settings.GetFloat(ctx, "value_max_pbr", defValMaxPBR)
	maxDebtRatio := s.settings.GetFloat(ctx, "value_max_debt_ratio", defValMaxDebtRatio)
	minCurrentRatio := s.settings.GetFloat(ctx, "value_min_current_ratio", defValMinCurrentRatio)
	minROE := s.settings.GetFloat(ctx, "value_min_roe", defValMinROE)
	minProfitYears := int(s.settings.GetInt(ctx, "value_min_profit_years", defValMinProfitYears))
	minTradingValue := s.settings.GetInt(ctx, "value_min_trading_value", defValMinTradingValueEok) * eok

	detail := make(contracts.ConditionResult, 10)

	detail[1] = !record.IsManaged() && !record.IsSuspended() && !record.IsDelisting()
	detail[2] = record.MarketCap >= minMarketCap
	detail[3] = record.PER != nil && *record.PER > 0 && *record.PER <= maxPER
	detail[4] = inRange(record.PBR, minPBR, maxPBR)
	detail[5] = ltFloat(record.DebtRatio, maxDebtRatio)

	// 6. 유동비율 — 커버리지가 낮은 필드라 데이터 없으면 통과
	if record.CurrentRatio != nil {
		detail[6] = *record.CurrentRatio >= minCurrentRatio
	} else {
		detail[6] = true
	}

	detail[7] = record.ROEAvg3Y >= minROE
	detail[8] = len(record.NetIncome3Y) >= 3 && profitYears(record.NetIncome3Y) >= minProfitYears
	detail[9] = record.TradingValue >= minTradingValue

	// 10. 배당 지급 실적 — 히스토리 없으면 현재 배당수익률로 판단
	if len(record.DividendHistory) > 0 {
		detail[10] = anyPositive(record.DividendHistory)
	} else {
		detail[10] = record.DivYield != nil && *record.DivYield > 0
	}

	return detail.AllPassed(), detail
}

func anyPositive(values []float64) bool {
	for _, v := range values {
		if v > 0 {
			return true
		}
	}
	return false
}
