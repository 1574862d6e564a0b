package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/pkg/redis"
)

// snapshotRow is one instrument of the merged full-market snapshot
type snapshotRow struct {
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Market       contracts.Market `json:"market"`
	Status       string           `json:"status"`
	MarketCap    int64            `json:"market_cap"`
	TradingValue int64            `json:"trading_value"`
	PER          *float64         `json:"per,omitempty"`
	PBR          *float64         `json:"pbr,omitempty"`
	DivYield     *float64         `json:"div_yield,omitempty"`
}

// krxCapResponse is the 전종목 시세 (MDCSTAT01501) response
type krxCapResponse struct {
	OutBlock1 []krxCapRow `json:"OutBlock_1"`
}

type krxCapRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"` // 종목코드 (단축)
	ISU_ABBRV  string `json:"ISU_ABBRV"`  // 종목명
	MKT_NM     string `json:"MKT_NM"`     // 시장구분
	MKTCAP     string `json:"MKTCAP"`     // 시가총액
	ACC_TRDVAL string `json:"ACC_TRDVAL"` // 거래대금
	LIST_SHRS  string `json:"LIST_SHRS"`  // 상장주식수
}

// krxFundResponse is the 전종목 PER/PBR/배당수익률 (MDCSTAT03501) response
type krxFundResponse struct {
	OutBlock1 []krxFundRow `json:"output,omitempty"`
	OutBlock2 []krxFundRow `json:"OutBlock_1,omitempty"`
}

type krxFundRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"`
	PER        string `json:"PER"`
	PBR        string `json:"PBR"`
	DVD_YLD    string `json:"DVD_YLD"` // 배당수익률
}

func (r krxFundResponse) rows() []krxFundRow {
	if len(r.OutBlock1) > 0 {
		return r.OutBlock1
	}
	return r.OutBlock2
}

// ListUniverse returns every KOSPI and KOSDAQ instrument of the latest
// snapshot, ordered by code so repeated runs walk the same sequence
func (c *Client) ListUniverse(ctx context.Context) ([]contracts.Ticker, error) {
	snap, err := c.ensureSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	tickers := make([]contracts.Ticker, 0, len(snap))
	for _, row := range snap {
		tickers = append(tickers, contracts.Ticker{
			Code:   row.Code,
			Name:   row.Name,
			Market: row.Market,
			Status: row.Status,
		})
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Code < tickers[j].Code })

	c.logger.WithField("count", len(tickers)).Info("Listed screening universe")
	return tickers, nil
}

// FetchMarket returns the snapshot quote for one instrument
func (c *Client) FetchMarket(ctx context.Context, code string) (*contracts.MarketData, error) {
	snap, err := c.ensureSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	row, ok := snap[code]
	if !ok {
		return nil, fmt.Errorf("stock %s not in KRX snapshot", code)
	}

	return &contracts.MarketData{
		MarketCap:    row.MarketCap,
		TradingValue: row.TradingValue,
		PER:          row.PER,
		PBR:          row.PBR,
		DivYield:     row.DivYield,
	}, nil
}

// ensureSnapshot loads the full-market snapshot for the current trade date,
// from Redis when available, otherwise from the KRX portal
func (c *Client) ensureSnapshot(ctx context.Context) (map[string]snapshotRow, error) {
	date := tradeDate(time.Now()).Format("20060102")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapDate == date && c.snapshot != nil {
		return c.snapshot, nil
	}

	if c.cache != nil {
		var cached []snapshotRow
		if found, err := c.cache.Get(ctx, redis.UniverseKey(date), &cached); err == nil && found {
			c.snapshot = indexRows(cached)
			c.snapDate = date
			c.logger.WithField("count", len(cached)).Debug("Loaded KRX snapshot from cache")
			return c.snapshot, nil
		}
	}

	rows, err := c.fetchSnapshot(ctx, date)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.UniverseKey(date), rows, redis.TTLDaily); err != nil {
			c.logger.WithError(err).Warn("Failed to cache KRX snapshot")
		}
	}

	c.snapshot = indexRows(rows)
	c.snapDate = date
	return c.snapshot, nil
}

func indexRows(rows []snapshotRow) map[string]snapshotRow {
	m := make(map[string]snapshotRow, len(rows))
	for _, r := range rows {
		m[r.Code] = r
	}
	return m
}

// fetchSnapshot pulls cap/trading value and PER/PBR/배당수익률 for both
// markets and merges them by code
func (c *Client) fetchSnapshot(ctx context.Context, trdDd string) ([]snapshotRow, error) {
	merged := make(map[string]snapshotRow)

	for _, mktID := range []string{"STK", "KSQ"} {
		capBody, err := c.postForm(ctx, url.Values{
			"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01501"},
			"locale":      {"ko_KR"},
			"mktId":       {mktID},
			"trdDd":       {trdDd},
			"share":       {"1"},
			"money":       {"1"},
			"csvxls_isNo": {"false"},
		})
		if err != nil {
			return nil, fmt.Errorf("fetch market snapshot (%s): %w", mktID, err)
		}

		var capResp krxCapResponse
		if err := json.Unmarshal(capBody, &capResp); err != nil {
			return nil, fmt.Errorf("decode market snapshot (%s): %w", mktID, err)
		}

		for _, row := range capResp.OutBlock1 {
			if row.ISU_SRT_CD == "" {
				continue
			}
			market := contracts.ParseMarket(mktID)
			if row.MKT_NM != "" {
				market = contracts.ParseMarket(row.MKT_NM)
			}
			merged[row.ISU_SRT_CD] = snapshotRow{
				Code:         row.ISU_SRT_CD,
				Name:         row.ISU_ABBRV,
				Market:       market,
				MarketCap:    parseKRXNumber(row.MKTCAP),
				TradingValue: parseKRXNumber(row.ACC_TRDVAL),
			}
		}

		fundBody, err := c.postForm(ctx, url.Values{
			"bld":         {"dbms/MDC/STAT/standard/MDCSTAT03501"},
			"locale":      {"ko_KR"},
			"searchType":  {"1"},
			"mktId":       {mktID},
			"trdDd":       {trdDd},
			"csvxls_isNo": {"false"},
		})
		if err != nil {
			return nil, fmt.Errorf("fetch fundamentals (%s): %w", mktID, err)
		}

		var fundResp krxFundResponse
		if err := json.Unmarshal(fundBody, &fundResp); err != nil {
			return nil, fmt.Errorf("decode fundamentals (%s): %w", mktID, err)
		}

		for _, row := range fundResp.rows() {
			entry, ok := merged[row.ISU_SRT_CD]
			if !ok {
				continue
			}
			entry.PER = parseKRXFloat(row.PER)
			entry.PBR = parseKRXFloat(row.PBR)
			entry.DivYield = parseKRXFloat(row.DVD_YLD)
			merged[row.ISU_SRT_CD] = entry
		}
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("KRX snapshot empty for %s", trdDd)
	}

	c.applyIssueFlags(ctx, merged)

	rows := make([]snapshotRow, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })

	c.logger.WithFields(map[string]interface{}{
		"trade_date": trdDd,
		"count":      len(rows),
	}).Info("Fetched full market snapshot from KRX")

	return rows, nil
}
