package contracts

// DataKind names a category of external data a strategy needs.
// Collectors skip sources no active strategy asks for, to avoid
// unnecessary rate-limited upstream calls.
type DataKind string

const (
	DataMarket           DataKind = "market"
	DataFinancial        DataKind = "financial"
	DataDisclosure       DataKind = "disclosure"
	DataMajorShareholder DataKind = "major_shareholder"
)

// DataSet is a capability set of required data kinds
type DataSet map[DataKind]bool

// NewDataSet builds a DataSet from kinds
func NewDataSet(kinds ...DataKind) DataSet {
	set := make(DataSet, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}

// Has reports whether the set requires the given kind
func (s DataSet) Has(kind DataKind) bool {
	return s[kind]
}

// MarketData is the per-instrument quote snapshot from the market source.
// Nil pointer fields mean missing or discarded-as-insane values.
type MarketData struct {
	MarketCap    int64    `json:"market_cap"`
	TradingValue int64    `json:"trading_value"`
	PER          *float64 `json:"per,omitempty"`
	PBR          *float64 `json:"pbr,omitempty"`
	DivYield     *float64 `json:"div_yield,omitempty"`
}

// FinancialData carries statement-derived series, each ordered newest → oldest.
// F-Score의 연도별 비교 체크를 위해 2~3년치 시계열을 그대로 들고 다닌다.
type FinancialData struct {
	DebtRatio     []float64 `json:"debt_ratio"`
	CurrentRatio  []float64 `json:"current_ratio"`
	ROE           []float64 `json:"roe"`
	ROA           []float64 `json:"roa"`
	NetIncome     []float64 `json:"net_income"`
	Revenue       []float64 `json:"revenue"`
	CFO           []float64 `json:"cfo"` // 영업활동현금흐름
	Shares        []float64 `json:"shares"`
	GrossMargin   []float64 `json:"gross_margin"`
	AssetTurnover []float64 `json:"asset_turnover"`

	Capital          float64 `json:"capital"`
	CapitalSurplus   float64 `json:"capital_surplus"`
	RetainedEarnings float64 `json:"retained_earnings"`

	DividendHistory []float64 `json:"dividend_history"`
	DividendPayout  *float64  `json:"dividend_payout,omitempty"`
}

// Latest returns the newest entry of a series, or nil when empty
func Latest(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[0]
	return &v
}

// DisclosureInfo summarizes trailing-12-month governance red flags
type DisclosureInfo struct {
	HasCBBW         bool `json:"has_cb_bw"`         // 전환사채/신주인수권부사채 발행
	HasPaidIncrease bool `json:"has_paid_increase"` // 유상증자 실시
}
