package screening

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/metrics"
)

func newCollector(universe *fakeUniverse, market, fallback contracts.MarketDataProvider, fin *fakeFinancial, disc *fakeDisclosure, own *fakeOwnership) *Collector {
	return NewCollector(universe, market, fallback, fin, disc, own, testLogger())
}

func TestUniverseEmptyIsFatal(t *testing.T) {
	c := newCollector(&fakeUniverse{}, &fakeMarket{}, nil, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	_, err := c.Universe(context.Background())
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestUniverseProviderErrorWrapped(t *testing.T) {
	cause := errors.New("upstream down")
	c := newCollector(&fakeUniverse{err: cause}, &fakeMarket{}, nil, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	_, err := c.Universe(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestBuildRecordFallbackFillsGaps(t *testing.T) {
	primary := &fakeMarket{data: map[string]*contracts.MarketData{
		"005930": {
			MarketCap:    400_000_000_000_000,
			TradingValue: 1_000_000_000,
			PBR:          contracts.Float(1.8),
			// PER, DivYield missing from the primary source
		},
	}}
	fallback := &fakeMarket{data: map[string]*contracts.MarketData{
		"005930": {
			PER:      contracts.Float(12.5),
			PBR:      contracts.Float(99.0), // must not overwrite the primary value
			DivYield: contracts.Float(3.1),
		},
	}}
	c := newCollector(&fakeUniverse{}, primary, fallback, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "005930"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	require.NotNil(t, record.PER)
	assert.Equal(t, 12.5, *record.PER)
	require.NotNil(t, record.PBR)
	assert.Equal(t, 1.8, *record.PBR)
	require.NotNil(t, record.DivYield)
	assert.Equal(t, 3.1, *record.DivYield)
	assert.Equal(t, 1, fallback.calls)
}

func TestBuildRecordInsanePrimaryFilledFromFallback(t *testing.T) {
	// an out-of-range primary value counts as missing, not present:
	// it must be discarded before the fallback fill so the sane
	// secondary value survives
	primary := &fakeMarket{data: map[string]*contracts.MarketData{
		"005930": {
			MarketCap: 400_000_000_000_000,
			PER:       contracts.Float(2_000.0),
			PBR:       contracts.Float(180.0),
		},
	}}
	fallback := &fakeMarket{data: map[string]*contracts.MarketData{
		"005930": {
			PER: contracts.Float(12.5),
			PBR: contracts.Float(1.8),
		},
	}}
	c := newCollector(&fakeUniverse{}, primary, fallback, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "005930"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	require.NotNil(t, record.PER)
	assert.Equal(t, 12.5, *record.PER)
	require.NotNil(t, record.PBR)
	assert.Equal(t, 1.8, *record.PBR)
	assert.Equal(t, 1, fallback.calls)
}

func TestBuildRecordFallbackSingleHop(t *testing.T) {
	primary := &fakeMarket{data: map[string]*contracts.MarketData{
		"000100": {MarketCap: 1_000_000_000_000},
	}}
	// the fallback is just as blind; missing stays missing
	fallback := &fakeMarket{}
	c := newCollector(&fakeUniverse{}, primary, fallback, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000100"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	assert.Nil(t, record.PER)
	assert.Nil(t, record.PBR)
	assert.Equal(t, 1, fallback.calls, "exactly one fallback attempt")
}

func TestBuildRecordFallbackSkippedWhenComplete(t *testing.T) {
	primary := &fakeMarket{data: map[string]*contracts.MarketData{
		"000200": {PER: contracts.Float(8.0), PBR: contracts.Float(0.9)},
	}}
	fallback := &fakeMarket{}
	c := newCollector(&fakeUniverse{}, primary, fallback, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	_, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000200"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	assert.Equal(t, 0, fallback.calls)
}

func TestBuildRecordInsaneRatiosDiscarded(t *testing.T) {
	primary := &fakeMarket{data: map[string]*contracts.MarketData{
		"000300": {
			PER: contracts.Float(58_000.0), // near-zero earnings garbage
			PBR: contracts.Float(250.0),
		},
	}}
	c := newCollector(&fakeUniverse{}, primary, nil, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000300"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	assert.Nil(t, record.PER)
	assert.Nil(t, record.PBR)
}

func TestBuildRecordMarketOutageDegrades(t *testing.T) {
	primary := &fakeMarket{err: errors.New("krx timeout")}
	c := newCollector(&fakeUniverse{}, primary, nil, &fakeFinancial{}, &fakeDisclosure{}, &fakeOwnership{})

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000400", Name: "테스트"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err, "a single-source outage must not abort the instrument")

	assert.Equal(t, "000400", record.Code)
	assert.Zero(t, record.MarketCap)
	assert.Nil(t, record.PER)
	assert.Equal(t, metrics.RatioSentinel, record.PCR)
	assert.Equal(t, metrics.RatioSentinel, record.PSR)
}

func TestBuildRecordSkipsUnrequiredSources(t *testing.T) {
	market := &fakeMarket{}
	fin := &fakeFinancial{}
	disc := &fakeDisclosure{}
	own := &fakeOwnership{}
	c := newCollector(&fakeUniverse{}, market, nil, fin, disc, own)

	_, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000500"}, contracts.NewDataSet(contracts.DataMarket))
	require.NoError(t, err)

	assert.Equal(t, 1, market.calls)
	assert.Equal(t, 0, fin.calls)
	assert.Equal(t, 0, disc.calls)
	assert.Equal(t, 0, own.calls)
}

func TestBuildRecordDerivedMetrics(t *testing.T) {
	market := &fakeMarket{data: map[string]*contracts.MarketData{
		"000600": {MarketCap: 1_000_000_000_000},
	}}
	fin := &fakeFinancial{data: map[string]*contracts.FinancialData{
		"000600": {
			NetIncome:        []float64{120, 100, 80},
			Revenue:          []float64{500_000_000_000, 450_000_000_000},
			CFO:              []float64{200_000_000_000, 180_000_000_000},
			ROE:              []float64{12.0, 10.0, 8.0},
			DebtRatio:        []float64{45.0, 50.0},
			Capital:          100,
			CapitalSurplus:   300,
			RetainedEarnings: 700,
		},
	}}
	c := newCollector(&fakeUniverse{}, market, nil, fin, &fakeDisclosure{}, &fakeOwnership{})

	required := contracts.NewDataSet(contracts.DataMarket, contracts.DataFinancial)
	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000600"}, required)
	require.NoError(t, err)

	assert.Equal(t, 5.0, record.PCR, "market cap over newest CFO")
	assert.Equal(t, 2.0, record.PSR, "market cap over newest revenue")
	assert.Equal(t, 10.0, record.ROEAvg3Y)
	assert.Equal(t, 1000.0, record.RetentionRatio)
	require.NotNil(t, record.DebtRatio)
	assert.Equal(t, 45.0, *record.DebtRatio, "newest entry of the series")
	assert.Equal(t, []float64{120, 100, 80}, record.NetIncome3Y)
}

func TestBuildRecordDisclosureAndOwnership(t *testing.T) {
	disc := &fakeDisclosure{info: contracts.DisclosureInfo{HasCBBW: true}}
	own := &fakeOwnership{ratio: 41.7}
	c := newCollector(&fakeUniverse{}, &fakeMarket{}, nil, &fakeFinancial{}, disc, own)

	required := contracts.NewDataSet(contracts.DataDisclosure, contracts.DataMajorShareholder)
	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000700"}, required)
	require.NoError(t, err)

	assert.True(t, record.HasCBBW)
	assert.False(t, record.HasPaidIncrease)
	require.NotNil(t, record.MajorShareholderRatio)
	assert.Equal(t, 41.7, *record.MajorShareholderRatio)
}

func TestBuildRecordOwnershipFailureLeavesNil(t *testing.T) {
	own := &fakeOwnership{err: errors.New("dart no data")}
	c := newCollector(&fakeUniverse{}, &fakeMarket{}, nil, &fakeFinancial{}, &fakeDisclosure{}, own)

	record, err := c.BuildRecord(context.Background(), contracts.Ticker{Code: "000800"}, contracts.NewDataSet(contracts.DataMajorShareholder))
	require.NoError(t, err)

	assert.Nil(t, record.MajorShareholderRatio)
}

func TestSaneRatio(t *testing.T) {
	tests := []struct {
		name    string
		in      *float64
		ceiling float64
		want    *float64
	}{
		{"nil stays nil", nil, 1000, nil},
		{"zero discarded", contracts.Float(0), 1000, nil},
		{"negative discarded", contracts.Float(-3.2), 1000, nil},
		{"above ceiling discarded", contracts.Float(1500), 1000, nil},
		{"in range kept", contracts.Float(12.5), 1000, contracts.Float(12.5)},
		{"at ceiling kept", contracts.Float(1000), 1000, contracts.Float(1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := saneRatio(tt.in, tt.ceiling)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}
