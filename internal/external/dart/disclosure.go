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

// disclosureWindow is how far back the red-flag scan looks
const disclosureWindow = 365 * 24 * time.Hour

// listResponse is the 공시검색 response
type listResponse struct {
	apiStatus
	PageNo     int             `json:"page_no"`
	TotalPage  int             `json:"total_page"`
	TotalCount int             `json:"total_count"`
	List       []disclosureRow `json:"list"`
}

type disclosureRow struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	ReportNm  string `json:"report_nm"` // 공시 제목
	RceptNo   string `json:"rcept_no"`  // 접수번호
	RceptDt   string `json:"rcept_dt"`  // 접수일자 (YYYYMMDD)
}

// cbKeywords flag 전환사채/신주인수권부사채 발행 공시
var cbKeywords = []string{"전환사채", "신주인수권부사채", "CB", "BW"}

// FetchDisclosures scans the trailing year of filings for governance red
// flags: CB/BW issuance and 유상증자.
// ⭐ SSOT: DART 공시 데이터 호출은 이 함수에서만
func (c *Client) FetchDisclosures(ctx context.Context, code string) (*contracts.DisclosureInfo, error) {
	corpCode, err := c.CorpCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows, err := c.fetchList(ctx, corpCode, now.Add(-disclosureWindow), now)
	if err != nil {
		return nil, fmt.Errorf("disclosure list for %s: %w", code, err)
	}

	return scanRedFlags(rows), nil
}

// scanRedFlags inspects filing titles for dilution events
func scanRedFlags(rows []disclosureRow) *contracts.DisclosureInfo {
	info := &contracts.DisclosureInfo{}
	for _, row := range rows {
		title := row.ReportNm
		if !info.HasCBBW {
			for _, kw := range cbKeywords {
				if strings.Contains(title, kw) {
					info.HasCBBW = true
					break
				}
			}
		}
		if !info.HasPaidIncrease && strings.Contains(title, "유상증자") {
			info.HasPaidIncrease = true
		}
		if info.HasCBBW && info.HasPaidIncrease {
			break
		}
	}
	return info
}

// fetchList pages through 공시검색 results for one company
func (c *Client) fetchList(ctx context.Context, corpCode string, from, to time.Time) ([]disclosureRow, error) {
	var all []disclosureRow

	for page := 1; ; page++ {
		var resp listResponse
		err := c.getJSON(ctx, "/api/list.json", url.Values{
			"corp_code":  {corpCode},
			"bgn_de":     {from.Format("20060102")},
			"end_de":     {to.Format("20060102")},
			"page_no":    {strconv.Itoa(page)},
			"page_count": {"100"},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if resp.noData() {
			return all, nil
		}
		if !resp.ok() {
			return nil, resp.err()
		}

		all = append(all, resp.List...)
		if page >= resp.TotalPage {
			return all, nil
		}
	}
}
