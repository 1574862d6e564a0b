package strategy

import (
	"context"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/metrics"
)

// SevenSplitMini keeps the ten most discriminating checklist conditions for
// a faster pass over the universe
type SevenSplitMini struct {
	settings contracts.SettingsProvider
}

// NewSevenSplitMini creates the reduced checklist strategy
func NewSevenSplitMini(settings contracts.SettingsProvider) *SevenSplitMini {
	return &SevenSplitMini{settings: settings}
}

func (s *SevenSplitMini) ID() string       { return "seven_split_mini" }
func (s *SevenSplitMini) Name() string     { return "세븐스플릿 핵심 10개" }
func (s *SevenSplitMini) Category() string { return "quality" }
func (s *SevenSplitMini) Version() string  { return "1.0.0" }

func (s *SevenSplitMini) Description() string {
	return "가장 중요한 10개 조건만으로 빠르게 스크리닝하여 더 많은 종목을 발굴합니다."
}

func (s *SevenSplitMini) RequiredData() contracts.DataSet {
	return contracts.NewDataSet(
		contracts.DataMarket,
		contracts.DataFinancial,
		contracts.DataDisclosure,
		contracts.DataMajorShareholder,
	)
}

func (s *SevenSplitMini) Conditions() map[int]string {
	return map[int]string{
		1:  "관리종목/거래정지/환기종목 제외",
		2:  "시가총액 1000억 이상",
		3:  "부채비율 300% 미만",
		4:  "ROE 3년 평균 15% 이상",
		5:  "PER 10 이상",
		6:  "PBR 1 이상",
		7:  "배당수익률 3% 이상",
		8:  "3년 연속 흑자",
		9:  "최대주주 지분율 30% 이상",
		10: "최근 1년 유상증자 미실시",
	}
}

// ApplyFilters evaluates all ten conditions regardless of early failures
func (s *SevenSplitMini) ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult) {
	minMarketCap := s.settings.GetInt(ctx, "min_market_cap", defMinMarketCapEok) * eok
	maxDebtRatio := s.settings.GetFloat(ctx, "max_debt_ratio", defMaxDebtRatio)
	minROE := s.settings.GetFloat(ctx, "min_roe_3y", defMinROE3Y)
	minPER := s.settings.GetFloat(ctx, "min_per", defMinPER)
	minPBR := s.settings.GetFloat(ctx, "min_pbr", defMinPBR)
	minDivYield := s.settings.GetFloat(ctx, "min_div_yield", defMinDivYield)
	minMajor := s.settings.GetFloat(ctx, "min_major_shareholder", defMinMajorShareholder)

	detail := make(contracts.ConditionResult, 10)

	detail[1] = !record.IsManaged() && !record.IsSuspended() && !record.IsCaution()
	detail[2] = record.MarketCap >= minMarketCap
	detail[3] = ltFloat(record.DebtRatio, maxDebtRatio)
	detail[4] = record.ROEAvg3Y >= minROE
	detail[5] = gePositive(record.PER, minPER)
	detail[6] = gePositive(record.PBR, minPBR)
	detail[7] = geFloat(record.DivYield, minDivYield)
	detail[8] = consecutiveProfits(record.NetIncome3Y)
	detail[9] = geFloat(record.MajorShareholderRatio, minMajor)
	detail[10] = !record.HasPaidIncrease

	return detail.AllPassed(), detail
}

// consecutiveProfits reports 3년 연속 흑자; fewer than 3 entries cannot
// assert continuity and fails
func consecutiveProfits(netIncome []float64) bool {
	if len(netIncome) < 3 {
		return false
	}
	return !metrics.CheckConsecutiveLosses(netIncome) && profitYears(netIncome) == 3
}

// profitYears counts positive entries among the newest three
func profitYears(netIncome []float64) int {
	if len(netIncome) > 3 {
		netIncome = netIncome[:3]
	}
	count := 0
	for _, v := range netIncome {
		if v > 0 {
			count++
		}
	}
	return count
}
