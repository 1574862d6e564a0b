package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/sevensplit/internal/contracts"
)

func TestFScore(t *testing.T) {
	tests := []struct {
		name string
		fin  *contracts.FinancialData
		want int
	}{
		{
			name: "nil input",
			fin:  nil,
			want: 0,
		},
		{
			name: "empty input",
			fin:  &contracts.FinancialData{},
			want: 0,
		},
		{
			name: "perfect nine",
			fin: &contracts.FinancialData{
				ROA:           []float64{8.0, 6.5},
				CFO:           []float64{1200, 900},
				NetIncome:     []float64{1000, 800},
				DebtRatio:     []float64{80, 110},
				CurrentRatio:  []float64{180, 150},
				Shares:        []float64{5000, 5000},
				GrossMargin:   []float64{32.5, 30.1},
				AssetTurnover: []float64{1.2, 1.1},
			},
			want: 9,
		},
		{
			name: "single year only scores level checks",
			fin: &contracts.FinancialData{
				ROA:       []float64{8.0},
				CFO:       []float64{1200},
				NetIncome: []float64{1000},
			},
			// ROA>0, CFO>0, CFO>NetIncome; YoY checks fail for lack of history
			want: 3,
		},
		{
			name: "share dilution loses the point",
			fin: &contracts.FinancialData{
				Shares: []float64{5500, 5000},
			},
			want: 0,
		},
		{
			name: "deteriorating fundamentals",
			fin: &contracts.FinancialData{
				ROA:           []float64{-2.0, 3.0},
				CFO:           []float64{-500, 200},
				NetIncome:     []float64{-300, 100},
				DebtRatio:     []float64{250, 180},
				CurrentRatio:  []float64{90, 120},
				Shares:        []float64{6000, 5000},
				GrossMargin:   []float64{20, 25},
				AssetTurnover: []float64{0.8, 1.0},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FScore(tt.fin)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 9)
		})
	}
}

func TestRetentionRatio(t *testing.T) {
	// 유보율 = (자본잉여금 + 이익잉여금) / 자본금 × 100
	assert.Equal(t, 300.0, RetentionRatio(100, 100, 200))
	assert.Equal(t, 101.0, RetentionRatio(1000, 500, 510))

	// 자본금 0원이면 0 (division by zero 금지)
	assert.Equal(t, 0.0, RetentionRatio(0, 100, 200))
}

func TestROEAverage3Y(t *testing.T) {
	tests := []struct {
		name string
		roe  []float64
		want float64
	}{
		{"three values", []float64{18, 15, 12}, 15.0},
		{"two values degrade gracefully", []float64{10, 20}, 15.0},
		{"one value", []float64{9}, 9.0},
		{"empty", nil, 0.0},
		{"uses newest three only", []float64{10, 20, 30, 99}, 20.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ROEAverage3Y(tt.roe))
		})
	}
}

func TestCheckConsecutiveLosses(t *testing.T) {
	tests := []struct {
		name      string
		netIncome []float64
		want      bool
	}{
		{"three losses", []float64{-1, -2, -3}, true},
		{"two losses insufficient", []float64{-1, -2}, false},
		{"mixed signs", []float64{-1, -2, 3}, false},
		{"all positive", []float64{50, 48, 45}, false},
		{"empty", nil, false},
		{"four entries checks newest three", []float64{-1, -2, -3, 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckConsecutiveLosses(tt.netIncome))
		})
	}
}

func TestPCRAndPSRSentinel(t *testing.T) {
	// 분모가 0 이하이면 에러 대신 고정 센티널 — 수치 비교가 항상 성립해야 한다
	assert.Equal(t, RatioSentinel, PCR(1000, 0))
	assert.Equal(t, RatioSentinel, PCR(1000, -5))
	assert.Equal(t, RatioSentinel, PSR(1000, 0))
	assert.Equal(t, RatioSentinel, PSR(1000, -5))

	assert.Equal(t, 10.0, PCR(1000, 100))
	assert.Equal(t, 2.5, PSR(1000, 400))
	assert.Equal(t, 3.33, PSR(1000, 300))
}
