// Package metrics computes derived financial ratios from raw statement data.
// Every function is pure and degrades to a conservative default on missing
// or malformed input instead of returning an error.
package metrics

import (
	"math"

	"github.com/wonny/sevensplit/internal/contracts"
)

// RatioSentinel is returned by PCR/PSR when the denominator is non-positive.
// A large finite value keeps downstream ">= threshold" comparisons well
// defined, signaling "effectively infinite" rather than raising.
const RatioSentinel = 999.99

// FScore computes the 9-point Piotroski quality score.
// Nine independent boolean checks; a check with missing inputs counts as
// not satisfied. The result is always in [0, 9].
// ⭐ SSOT: F-Score 계산은 이 함수에서만
func FScore(fin *contracts.FinancialData) int {
	if fin == nil {
		return 0
	}

	score := 0

	// 수익성 (Profitability) - 4점
	if latest(fin.ROA) > 0 {
		score++
	}
	if latest(fin.CFO) > 0 {
		score++
	}
	if improvedYoY(fin.ROA) {
		score++
	}
	// 현금흐름 > 순이익 (발생액 품질)
	if len(fin.CFO) > 0 && len(fin.NetIncome) > 0 && fin.CFO[0] > fin.NetIncome[0] {
		score++
	}

	// 레버리지/유동성 (Leverage, Liquidity) - 3점
	if declinedYoY(fin.DebtRatio) {
		score++
	}
	if improvedYoY(fin.CurrentRatio) {
		score++
	}
	// 신주 미발행
	if len(fin.Shares) >= 2 && fin.Shares[0] <= fin.Shares[1] {
		score++
	}

	// 운영효율성 (Operating Efficiency) - 2점
	if improvedYoY(fin.GrossMargin) {
		score++
	}
	if improvedYoY(fin.AssetTurnover) {
		score++
	}

	return score
}

// RetentionRatio computes (자본잉여금 + 이익잉여금) / 자본금 × 100.
// Returns 0 when capital is zero or missing: a young or data-poor company
// reads as "no retention signal", not an error.
func RetentionRatio(capital, capitalSurplus, retainedEarnings float64) float64 {
	if capital == 0 || math.IsNaN(capital) {
		return 0.0
	}
	return round2((capitalSurplus + retainedEarnings) / capital * 100)
}

// ROEAverage3Y returns the mean of up to the 3 newest values.
// Degrades gracefully with fewer entries; returns 0 when none are present.
func ROEAverage3Y(roe []float64) float64 {
	if len(roe) > 3 {
		roe = roe[:3]
	}

	sum := 0.0
	count := 0
	for _, v := range roe {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0.0
	}
	return round2(sum / float64(count))
}

// CheckConsecutiveLosses reports 3년 연속 적자: true only when at least
// 3 entries are present and the newest 3 are all negative. With fewer
// entries continuity cannot be asserted, so the answer is false.
func CheckConsecutiveLosses(netIncome []float64) bool {
	if len(netIncome) < 3 {
		return false
	}
	for _, v := range netIncome[:3] {
		if math.IsNaN(v) || v >= 0 {
			return false
		}
	}
	return true
}

// PCR computes 시가총액 / 영업현금흐름, or RatioSentinel when the
// cashflow is non-positive
func PCR(marketCap, operatingCashflow float64) float64 {
	if operatingCashflow <= 0 {
		return RatioSentinel
	}
	return round2(marketCap / operatingCashflow)
}

// PSR computes 시가총액 / 매출액, or RatioSentinel when revenue is
// non-positive
func PSR(marketCap, revenue float64) float64 {
	if revenue <= 0 {
		return RatioSentinel
	}
	return round2(marketCap / revenue)
}

// latest returns the newest entry of a series, or 0 when empty
func latest(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[0]
}

// improvedYoY reports that the newest value exceeds the prior year's
func improvedYoY(series []float64) bool {
	return len(series) >= 2 && series[0] > series[1]
}

// declinedYoY reports that the newest value is below the prior year's
func declinedYoY(series []float64) bool {
	return len(series) >= 2 && series[0] < series[1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
