package dart

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/sevensplit/pkg/config"
	"github.com/wonny/sevensplit/pkg/logger"
	"github.com/wonny/sevensplit/pkg/redis"
)

// Client handles communication with the DART (전자공시) OpenAPI.
// Implements contracts.FinancialDataProvider, contracts.DisclosureProvider
// and contracts.OwnershipProvider.
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	apiKey      string
	baseURL     string
	rateLimiter *redis.RateLimiter
	corps       *corpIndex
}

// NewClient creates a new DART API client
// DART API requires legacy TLS configuration (RSA key exchange)
func NewClient(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter) *Client {
	return &Client{
		httpClient:  newLegacyCompatibleClient(30 * time.Second),
		logger:      log.WithField("component", "dart"),
		apiKey:      cfg.DART.APIKey,
		baseURL:     strings.TrimSuffix(cfg.DART.BaseURL, "/api"),
		rateLimiter: limiter,
		corps:       newCorpIndex(),
	}
}

// newLegacyCompatibleClient creates an HTTP client compatible with legacy TLS servers
// DART server requires RSA key exchange cipher suites which Go 1.22+ no longer offers by default
func newLegacyCompatibleClient(timeout time.Duration) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,

		// Include RSA KEX cipher suites for legacy server compatibility
		// DART server doesn't support ECDHE, so we need RSA key exchange
		CipherSuites: []uint16{
			// ECDHE (modern) - will be used if server supports
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,

			// RSA KEX (legacy) - required for DART API
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false, // Disable HTTP/2 for legacy server compatibility

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5, // Reduced to avoid overwhelming DART API
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

// getJSON issues a GET against a DART endpoint and decodes the response,
// retrying transient network failures with exponential backoff
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	const maxRetries = 3
	const initialBackoff = 500 * time.Millisecond
	const maxBackoff = 5 * time.Second

	params.Set("crtfc_key", c.apiKey)
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = c.getJSONOnce(ctx, fullURL, dest)
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
		if attempt == maxRetries-1 {
			break
		}

		c.logger.WithError(lastErr).WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"path":    path,
			"backoff": backoff,
		}).Debug("Retrying DART API call")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return fmt.Errorf("max retries exceeded for %s: %w", path, lastErr)
}

func (c *Client) getJSONOnce(ctx context.Context, fullURL string, dest interface{}) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, redis.DARTRateLimit); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiStatus is the envelope every DART JSON response carries.
// 000 = success, 013 = no data.
type apiStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s apiStatus) ok() bool {
	return s.Status == "000"
}

func (s apiStatus) noData() bool {
	return s.Status == "013"
}

func (s apiStatus) err() error {
	return fmt.Errorf("DART API error: %s - %s", s.Status, s.Message)
}

// isRetryableError checks if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"connection reset by peer",
		"eof",
		"connection refused",
		"network unreachable",
		"timeout",
		"i/o timeout",
		"connect: operation timed out",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
