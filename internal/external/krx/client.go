package krx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/sevensplit/pkg/config"
	"github.com/wonny/sevensplit/pkg/logger"
	"github.com/wonny/sevensplit/pkg/redis"
)

// Client handles communication with the KRX data portal.
// Implements contracts.UniverseProvider and contracts.MarketDataProvider
// from a per-day full-market snapshot.
// ⭐ SSOT: KRX 시장 데이터 호출은 이 클라이언트에서만
type Client struct {
	logger      *logger.Logger
	baseURL     string
	rateLimiter *redis.RateLimiter
	cache       *redis.Cache

	mu       sync.Mutex
	snapshot map[string]snapshotRow
	snapDate string
}

// NewClient creates a new KRX client
func NewClient(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter, cache *redis.Cache) *Client {
	return &Client{
		logger:      log.WithField("component", "krx"),
		baseURL:     cfg.KRX.BaseURL,
		rateLimiter: limiter,
		cache:       cache,
	}
}

// postForm issues a form POST against the KRX JSON endpoint with
// browser-like headers (KRX blocks bot requests)
func (c *Client) postForm(ctx context.Context, formData url.Values) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, redis.KRXRateLimit); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint := c.baseURL + "/comm/bldAttendant/getJsonData.cmd"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201020101")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("KRX API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("KRX API returned status %d: %s", resp.StatusCode, string(body[:min(200, len(body))]))
	}

	return body, nil
}

// tradeDate returns the most recent completed trading date.
// Before market close the previous business day is used.
func tradeDate(now time.Time) time.Time {
	d := now
	if d.Hour() < 16 {
		d = d.AddDate(0, 0, -1)
	}
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// parseKRXNumber parses KRX number format (with commas) to int64
func parseKRXNumber(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseKRXFloat parses KRX decimal format to a nullable float.
// "-" marks a missing value (e.g. PER of a loss-making company).
func parseKRXFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
