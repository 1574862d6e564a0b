package dart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// hyslrResponse is the 최대주주 현황 response
type hyslrResponse struct {
	apiStatus
	List []hyslrRow `json:"list"`
}

type hyslrRow struct {
	Nm                    string `json:"nm"`                          // 성명
	Relate                string `json:"relate"`                      // 관계
	TrmendPosesnStockQota string `json:"trmend_posesn_stock_qota_rt"` // 기말 소유주식 지분율
}

// FetchOwnership returns the largest shareholder's stake in percent,
// from the latest 사업보고서의 최대주주 현황. Zero when unreported.
// ⭐ SSOT: 최대주주 지분율 조회는 이 함수에서만
func (c *Client) FetchOwnership(ctx context.Context, code string) (float64, error) {
	corpCode, err := c.CorpCode(ctx, code)
	if err != nil {
		return 0, err
	}

	year := lastBusinessYear(time.Now())

	var resp hyslrResponse
	err = c.getJSON(ctx, "/api/hyslrSttus.json", url.Values{
		"corp_code":  {corpCode},
		"bsns_year":  {strconv.Itoa(year)},
		"reprt_code": {annualReport},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("major shareholder for %s: %w", code, err)
	}
	if resp.noData() || len(resp.List) == 0 {
		return 0, nil
	}
	if !resp.ok() {
		return 0, resp.err()
	}

	// 합계 행이 아닌 첫 행이 최대주주 본인
	for _, row := range resp.List {
		if strings.Contains(row.Nm, "계") && strings.TrimSpace(row.Relate) == "" {
			continue
		}
		if ratio, ok := parsePercent(row.TrmendPosesnStockQota); ok {
			return ratio, nil
		}
	}
	return 0, nil
}

// parsePercent parses a DART 지분율 cell ("34.35" 또는 "34.35%")
func parsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
