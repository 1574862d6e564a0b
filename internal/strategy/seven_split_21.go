package strategy

import (
	"context"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/metrics"
)

// Threshold defaults for the full checklist. Operators retune these through
// settings keys of the same name; the constants only apply when a key is
// unset.
const (
	defMinMarketCapEok     = 1000 // 억원
	defMaxDebtRatio        = 300.0
	defMinRetentionRatio   = 100.0
	defMinTradingValueEok  = 10 // 억원
	defMinROE3Y            = 15.0
	defMinPBR              = 1.0
	defMinPER              = 10.0
	defMinDivYield         = 3.0
	defMinPCR              = 10.0
	defMinPSR              = 1.0
	defMinFScore           = 5
	defMinMajorShareholder = 30.0

	eok = 100_000_000 // 1억원
)

// SevenSplit21 is the full 21-point quantitative checklist
type SevenSplit21 struct {
	settings contracts.SettingsProvider
}

// NewSevenSplit21 creates the full checklist strategy
func NewSevenSplit21(settings contracts.SettingsProvider) *SevenSplit21 {
	return &SevenSplit21{settings: settings}
}

func (s *SevenSplit21) ID() string       { return "seven_split_21" }
func (s *SevenSplit21) Name() string     { return "세븐스플릿 21개 조건" }
func (s *SevenSplit21) Category() string { return "quality" }
func (s *SevenSplit21) Version() string  { return "1.0.0" }

func (s *SevenSplit21) Description() string {
	return "정량적 체크리스트 21가지 조건을 모두 충족하는 우량주를 선별합니다."
}

func (s *SevenSplit21) RequiredData() contracts.DataSet {
	return contracts.NewDataSet(
		contracts.DataMarket,
		contracts.DataFinancial,
		contracts.DataDisclosure,
		contracts.DataMajorShareholder,
	)
}

func (s *SevenSplit21) Conditions() map[int]string {
	return map[int]string{
		1: "관리종목 제외", 2: "거래정지 제외", 3: "환기종목 제외",
		4: "정리매매 제외", 5: "불성실공시 제외", 6: "상장폐지 제외",
		7: "시가총액 1000억 이상", 8: "부채비율 300% 미만", 9: "유보율 100% 이상",
		10: "3년 연속 적자 제외", 11: "거래대금 10억 이상", 12: "ROE 3년 평균 15% 이상",
		13: "PBR 1 이상", 14: "PER 10 이상", 15: "배당수익률 3% 이상",
		16: "PCR 10 이상", 17: "PSR 1 이상", 18: "F-SCORE 5점 이상",
		19: "최근 1년 CB/BW 미발행", 20: "최근 1년 유상증자 미실시",
		21: "최대주주 지분율 30% 이상",
	}
}

// ApplyFilters evaluates all 21 conditions. Status exclusions (1-6) decide
// the overall pass like any other condition; every entry is still evaluated
// so funnel statistics stay complete.
func (s *SevenSplit21) ApplyFilters(ctx context.Context, record *contracts.StockRecord) (bool, contracts.ConditionResult) {
	minMarketCap := s.settings.GetInt(ctx, "min_market_cap", defMinMarketCapEok) * eok
	maxDebtRatio := s.settings.GetFloat(ctx, "max_debt_ratio", defMaxDebtRatio)
	minRetention := s.settings.GetFloat(ctx, "min_retention_ratio", defMinRetentionRatio)
	minTradingValue := s.settings.GetInt(ctx, "min_trading_value", defMinTradingValueEok) * eok
	minROE := s.settings.GetFloat(ctx, "min_roe_3y", defMinROE3Y)
	minPBR := s.settings.GetFloat(ctx, "min_pbr", defMinPBR)
	minPER := s.settings.GetFloat(ctx, "min_per", defMinPER)
	minDivYield := s.settings.GetFloat(ctx, "min_div_yield", defMinDivYield)
	minPCR := s.settings.GetFloat(ctx, "min_pcr", defMinPCR)
	minPSR := s.settings.GetFloat(ctx, "min_psr", defMinPSR)
	minFScore := int(s.settings.GetInt(ctx, "min_fscore", defMinFScore))
	minMajor := s.settings.GetFloat(ctx, "min_major_shareholder", defMinMajorShareholder)

	detail := make(contracts.ConditionResult, 21)

	// 1-6. 상태 제외 조건
	detail[1] = !record.IsManaged()
	detail[2] = !record.IsSuspended()
	detail[3] = !record.IsCaution()
	detail[4] = !record.IsLiquidation()
	detail[5] = !record.IsDisclosureViolation()
	detail[6] = !record.IsDelisting()

	// 7-11. 규모/재무 건전성
	detail[7] = record.MarketCap >= minMarketCap
	detail[8] = ltFloat(record.DebtRatio, maxDebtRatio)
	detail[9] = record.RetentionRatio >= minRetention
	// 10: 3년치 순이익이 모두 있어야 연속성 판정 가능
	detail[10] = len(record.NetIncome3Y) >= 3 && !metrics.CheckConsecutiveLosses(record.NetIncome3Y)
	detail[11] = record.TradingValue >= minTradingValue

	// 12-18. 수익성/가치 지표
	detail[12] = record.ROEAvg3Y >= minROE
	detail[13] = gePositive(record.PBR, minPBR)
	detail[14] = gePositive(record.PER, minPER)
	detail[15] = geFloat(record.DivYield, minDivYield)
	detail[16] = record.PCR >= minPCR
	detail[17] = record.PSR >= minPSR
	detail[18] = record.FScore >= minFScore

	// 19-21. 지배구조/공시
	detail[19] = !record.HasCBBW
	detail[20] = !record.HasPaidIncrease
	detail[21] = geFloat(record.MajorShareholderRatio, minMajor)

	return detail.AllPassed(), detail
}
