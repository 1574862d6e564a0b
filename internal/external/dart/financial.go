package dart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/sevensplit/internal/contracts"
)

// 사업보고서 reprt_code
const annualReport = "11011"

// finstateResponse is the 단일회사 주요계정/전체 재무제표 response
type finstateResponse struct {
	apiStatus
	List []finstateRow `json:"list"`
}

type finstateRow struct {
	FsDiv           string `json:"fs_div"` // CFS: 연결, OFS: 별도
	SjDiv           string `json:"sj_div"` // BS/IS/CF
	AccountNm       string `json:"account_nm"`
	ThstrmAmount    string `json:"thstrm_amount"`    // 당기
	FrmtrmAmount    string `json:"frmtrm_amount"`    // 전기
	BfefrmtrmAmount string `json:"bfefrmtrm_amount"` // 전전기
}

// alotResponse is the 배당에 관한 사항 response
type alotResponse struct {
	apiStatus
	List []alotRow `json:"list"`
}

type alotRow struct {
	Se     string `json:"se"` // 구분
	Thstrm string `json:"thstrm"`
	Frmtrm string `json:"frmtrm"`
	Lwfr   string `json:"lwfr"` // 전전기
}

// FetchFinancials assembles statement series for one instrument from the
// latest 사업보고서. Series run newest → oldest, up to three business years.
// ⭐ SSOT: DART 재무제표 조회는 이 함수에서만
func (c *Client) FetchFinancials(ctx context.Context, code string) (*contracts.FinancialData, error) {
	corpCode, err := c.CorpCode(ctx, code)
	if err != nil {
		return nil, err
	}

	year := lastBusinessYear(time.Now())

	summary, err := c.fetchSummaryAccounts(ctx, corpCode, year)
	if err != nil {
		return nil, fmt.Errorf("summary accounts for %s: %w", code, err)
	}

	data := &contracts.FinancialData{
		NetIncome: seriesOf(summary, "당기순이익"),
		Revenue:   seriesOf(summary, "매출액", "영업수익"),
	}

	equity := seriesOf(summary, "자본총계")
	debt := seriesOf(summary, "부채총계")
	assets := seriesOf(summary, "자산총계")

	data.DebtRatio = ratioSeries(debt, equity)
	data.ROE = ratioSeries(data.NetIncome, equity)
	data.ROA = ratioSeries(data.NetIncome, assets)
	data.AssetTurnover = turnoverSeries(data.Revenue, assets)

	// 전체 재무제표에서 현금흐름/유동성/자본 계정 보강
	if full, err := c.fetchFullStatements(ctx, corpCode, year); err != nil {
		c.logger.WithError(err).WithField("stock_code", code).Debug("Full statement fetch failed")
	} else {
		data.CFO = seriesOf(full, "영업활동현금흐름", "영업활동으로인한현금흐름")

		currentAssets := seriesOf(full, "유동자산")
		currentLiabilities := seriesOf(full, "유동부채")
		data.CurrentRatio = ratioSeries(currentAssets, currentLiabilities)

		grossProfit := seriesOf(full, "매출총이익")
		data.GrossMargin = ratioSeries(grossProfit, data.Revenue)

		if v := firstOf(full, "자본금"); v != nil {
			data.Capital = *v
		}
		if v := firstOf(full, "자본잉여금"); v != nil {
			data.CapitalSurplus = *v
		}
		if v := firstOf(full, "이익잉여금", "이익잉여금(결손금)"); v != nil {
			data.RetainedEarnings = *v
		}
	}

	if err := c.fetchDividends(ctx, corpCode, year, data); err != nil {
		c.logger.WithError(err).WithField("stock_code", code).Debug("Dividend fetch failed")
	}

	if len(data.NetIncome) == 0 && len(data.Revenue) == 0 {
		return nil, fmt.Errorf("no financial statements for %s (year %d)", code, year)
	}

	return data, nil
}

// lastBusinessYear returns the most recent year with a filed 사업보고서.
// Annual reports arrive by end of March, so early in the year the report
// for two years back is the latest available.
func lastBusinessYear(now time.Time) int {
	year := now.Year() - 1
	if now.Month() < time.April {
		year--
	}
	return year
}

func (c *Client) fetchSummaryAccounts(ctx context.Context, corpCode string, year int) ([]finstateRow, error) {
	var resp finstateResponse
	err := c.getJSON(ctx, "/api/fnlttSinglAcnt.json", url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {strconv.Itoa(year)},
		"reprt_code": {annualReport},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.noData() {
		return nil, nil
	}
	if !resp.ok() {
		return nil, resp.err()
	}
	return resp.List, nil
}

func (c *Client) fetchFullStatements(ctx context.Context, corpCode string, year int) ([]finstateRow, error) {
	// 연결 우선, 없으면 별도
	for _, fsDiv := range []string{"CFS", "OFS"} {
		var resp finstateResponse
		err := c.getJSON(ctx, "/api/fnlttSinglAcntAll.json", url.Values{
			"corp_code":  {corpCode},
			"bsns_year":  {strconv.Itoa(year)},
			"reprt_code": {annualReport},
			"fs_div":     {fsDiv},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.ok() && len(resp.List) > 0 {
			return resp.List, nil
		}
		if !resp.ok() && !resp.noData() {
			return nil, resp.err()
		}
	}
	return nil, nil
}

// fetchDividends fills dividend history and payout from 배당에 관한 사항
func (c *Client) fetchDividends(ctx context.Context, corpCode string, year int, data *contracts.FinancialData) error {
	var resp alotResponse
	err := c.getJSON(ctx, "/api/alotMatter.json", url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {strconv.Itoa(year)},
		"reprt_code": {annualReport},
	}, &resp)
	if err != nil {
		return err
	}
	if resp.noData() {
		return nil
	}
	if !resp.ok() {
		return resp.err()
	}

	for _, row := range resp.List {
		se := strings.ReplaceAll(row.Se, " ", "")
		switch {
		case strings.Contains(se, "주당현금배당금"):
			data.DividendHistory = amountSeries(row.Thstrm, row.Frmtrm, row.Lwfr)
		case strings.Contains(se, "현금배당성향"):
			if v, ok := parseAmount(row.Thstrm); ok {
				data.DividendPayout = &v
			}
		}
	}
	return nil
}

// seriesOf extracts the newest → oldest amount series for an account.
// 연결(CFS) 기준 우선, 별도(OFS)만 있으면 별도 기준.
func seriesOf(rows []finstateRow, accountNames ...string) []float64 {
	row, ok := findAccount(rows, accountNames)
	if !ok {
		return nil
	}
	return amountSeries(row.ThstrmAmount, row.FrmtrmAmount, row.BfefrmtrmAmount)
}

// firstOf extracts the current-period amount for an account
func firstOf(rows []finstateRow, accountNames ...string) *float64 {
	row, ok := findAccount(rows, accountNames)
	if !ok {
		return nil
	}
	if v, ok := parseAmount(row.ThstrmAmount); ok {
		return &v
	}
	return nil
}

func findAccount(rows []finstateRow, accountNames []string) (finstateRow, bool) {
	var fallback finstateRow
	haveFallback := false

	for _, row := range rows {
		name := strings.ReplaceAll(row.AccountNm, " ", "")
		matched := false
		for _, want := range accountNames {
			if name == want {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if row.FsDiv == "CFS" || row.FsDiv == "" {
			return row, true
		}
		if !haveFallback {
			fallback = row
			haveFallback = true
		}
	}
	return fallback, haveFallback
}

// amountSeries parses period amounts into a newest → oldest series,
// stopping at the first missing period
func amountSeries(amounts ...string) []float64 {
	var series []float64
	for _, s := range amounts {
		v, ok := parseAmount(s)
		if !ok {
			break
		}
		series = append(series, v)
	}
	return series
}

// parseAmount parses a DART amount string ("1,234,567" 또는 "-")
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ratioSeries divides numerator by denominator element-wise as percent,
// truncating to the shorter series
func ratioSeries(num, den []float64) []float64 {
	n := len(num)
	if len(den) < n {
		n = len(den)
	}
	var series []float64
	for i := 0; i < n; i++ {
		if den[i] == 0 {
			break
		}
		series = append(series, num[i]/den[i]*100)
	}
	return series
}

// turnoverSeries divides revenue by assets element-wise (회전율, 배수)
func turnoverSeries(revenue, assets []float64) []float64 {
	n := len(revenue)
	if len(assets) < n {
		n = len(assets)
	}
	var series []float64
	for i := 0; i < n; i++ {
		if assets[i] == 0 {
			break
		}
		series = append(series, revenue[i]/assets[i])
	}
	return series
}
