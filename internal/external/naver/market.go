package naver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/sevensplit/internal/contracts"
)

// FetchMarket scrapes the 종목 메인 page for quote metrics.
// Used as the fallback when the primary snapshot is missing a value.
// ⭐ SSOT: Naver 종목 시세 조회는 이 함수에서만
func (c *Client) FetchMarket(ctx context.Context, code string) (*contracts.MarketData, error) {
	html, err := c.fetchHTML(ctx, "/item/main.naver", url.Values{"code": {code}})
	if err != nil {
		return nil, fmt.Errorf("fetch item page for %s: %w", code, err)
	}

	data, err := parseItemMain(html)
	if err != nil {
		return nil, fmt.Errorf("parse item page for %s: %w", code, err)
	}

	c.logger.WithField("stock_code", code).Debug("Fetched fallback market data")
	return data, nil
}

// parseItemMain extracts quote metrics from the 종목 메인 HTML.
// Naver marks each metric with a stable element id.
func parseItemMain(html string) (*contracts.MarketData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	data := &contracts.MarketData{
		PER:      parseNaverFloat(doc.Find("#_per").First().Text()),
		PBR:      parseNaverFloat(doc.Find("#_pbr").First().Text()),
		DivYield: parseNaverFloat(doc.Find("#_dvr").First().Text()),
	}

	// 시가총액은 "N조 M,MMM" 억원 형식
	data.MarketCap = parseMarketSum(doc.Find("#_market_sum").First().Text())

	if data.MarketCap == 0 && data.PER == nil && data.PBR == nil {
		return nil, fmt.Errorf("no quote metrics in page")
	}

	return data, nil
}

// parseNaverFloat parses a Naver numeric cell into a nullable float.
// "N/A" and "-" mark missing values.
func parseNaverFloat(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" || strings.EqualFold(s, "N/A") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseMarketSum parses the 시가총액 cell ("388조 1,294" 억원) into KRW
func parseMarketSum(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}

	const (
		eok = int64(100_000_000)
		jo  = int64(1_000_000_000_000)
	)

	var total int64
	if idx := strings.Index(s, "조"); idx >= 0 {
		n, err := strconv.ParseInt(strings.TrimSpace(s[:idx]), 10, 64)
		if err != nil {
			return 0
		}
		total = n * jo
		s = strings.TrimSpace(s[idx+len("조"):])
	}

	if s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return total
		}
		total += n * eok
	}

	return total
}
