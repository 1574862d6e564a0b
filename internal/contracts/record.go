package contracts

import "strings"

// Market represents the exchange a stock is listed on
type Market string

const (
	MarketKOSPI  Market = "KOSPI"
	MarketKOSDAQ Market = "KOSDAQ"
	MarketKONEX  Market = "KONEX"
	MarketOther  Market = "OTHER"
)

// ParseMarket normalizes an upstream market label
func ParseMarket(s string) Market {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KOSPI", "STK":
		return MarketKOSPI
	case "KOSDAQ", "KSQ", "KOSDAQ GLOBAL":
		return MarketKOSDAQ
	case "KONEX", "KNX":
		return MarketKONEX
	default:
		return MarketOther
	}
}

// Ticker is one entry of the screening universe
type Ticker struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market Market `json:"market"`
	Status string `json:"status"` // 관리/거래정지/환기 등 원문 플래그
}

// StockRecord is the canonical per-instrument record built for one run.
// Nullable market metrics are pointers: nil means the value was missing or
// discarded as out of range, and any condition reading it must fail.
// ⭐ SSOT: 종목별 스크리닝 입력 데이터는 이 구조체로만 전달
type StockRecord struct {
	// Identity
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market Market `json:"market"`
	Status string `json:"status"`

	// Market metrics (KRW, smallest unit)
	MarketCap    int64    `json:"market_cap"`
	TradingValue int64    `json:"trading_value"`
	PER          *float64 `json:"per,omitempty"`
	PBR          *float64 `json:"pbr,omitempty"`
	DivYield     *float64 `json:"div_yield,omitempty"`

	// Financial metrics
	DebtRatio       *float64  `json:"debt_ratio,omitempty"`
	CurrentRatio    *float64  `json:"current_ratio,omitempty"`
	RetentionRatio  float64   `json:"retention_ratio"`
	ROEAvg3Y        float64   `json:"roe_avg_3y"`
	NetIncome3Y     []float64 `json:"net_income_3y"` // 최신 → 과거, 최대 3개
	DividendHistory []float64 `json:"dividend_history"`
	DividendPayout  *float64  `json:"dividend_payout,omitempty"`

	// Derived scores
	PCR    float64 `json:"pcr"`
	PSR    float64 `json:"psr"`
	FScore int     `json:"fscore"`

	// Governance / disclosure
	HasCBBW               bool     `json:"has_cb_bw"`
	HasPaidIncrease       bool     `json:"has_paid_increase"`
	MajorShareholderRatio *float64 `json:"major_shareholder_ratio,omitempty"`
}

// Status flag helpers. Upstream sources deliver free-text status strings,
// so flags are parsed by case-insensitive keyword match.

func (r *StockRecord) statusContains(keywords ...string) bool {
	status := strings.ToUpper(r.Status)
	for _, kw := range keywords {
		if strings.Contains(status, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// IsManaged reports whether the stock is a 관리종목
func (r *StockRecord) IsManaged() bool {
	return r.statusContains("관리")
}

// IsSuspended reports whether trading is halted
func (r *StockRecord) IsSuspended() bool {
	return r.statusContains("거래정지", "HALT")
}

// IsCaution reports whether the stock is a 투자주의환기종목
func (r *StockRecord) IsCaution() bool {
	return r.statusContains("환기", "CAUTION")
}

// IsLiquidation reports whether the stock is in 정리매매
func (r *StockRecord) IsLiquidation() bool {
	return r.statusContains("정리매매")
}

// IsDelisting reports whether delisting is in progress
func (r *StockRecord) IsDelisting() bool {
	return r.statusContains("폐지")
}

// IsDisclosureViolation reports 불성실공시법인 designation
func (r *StockRecord) IsDisclosureViolation() bool {
	return r.statusContains("불성실")
}

// Float returns a pointer to v, for building nullable record fields
func Float(v float64) *float64 {
	return &v
}
