package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// corpIndex maps 6-digit stock codes to DART 8-digit corp codes.
// The mapping file changes rarely; one download per day is plenty.
type corpIndex struct {
	mu      sync.Mutex
	byStock map[string]string
	fetched time.Time
}

func newCorpIndex() *corpIndex {
	return &corpIndex{}
}

// corpCodeXML is the CORPCODE.xml document inside the corpCode.xml zip
type corpCodeXML struct {
	List []corpCodeEntry `xml:"list"`
}

type corpCodeEntry struct {
	CorpCode  string `xml:"corp_code"`
	CorpName  string `xml:"corp_name"`
	StockCode string `xml:"stock_code"`
}

// CorpCode resolves the DART corp code for a stock code,
// downloading the mapping file on first use
func (c *Client) CorpCode(ctx context.Context, stockCode string) (string, error) {
	c.corps.mu.Lock()
	defer c.corps.mu.Unlock()

	if c.corps.byStock == nil || time.Since(c.corps.fetched) > 24*time.Hour {
		index, err := c.downloadCorpCodes(ctx)
		if err != nil {
			if c.corps.byStock == nil {
				return "", err
			}
			// Stale index beats a hard failure
			c.logger.WithError(err).Warn("Failed to refresh corp code index")
		} else {
			c.corps.byStock = index
			c.corps.fetched = time.Now()
		}
	}

	corpCode, ok := c.corps.byStock[stockCode]
	if !ok {
		return "", fmt.Errorf("no corp code for stock %s", stockCode)
	}
	return corpCode, nil
}

// downloadCorpCodes fetches and unpacks the corpCode.xml zip archive
func (c *Client) downloadCorpCodes(ctx context.Context) (map[string]string, error) {
	fullURL := fmt.Sprintf("%s/api/corpCode.xml?crtfc_key=%s", c.baseURL, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download corp codes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read corp codes: %w", err)
	}

	index, err := parseCorpCodeZip(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(index)).Info("Loaded DART corp code index")
	return index, nil
}

// parseCorpCodeZip extracts the stock code → corp code mapping from the
// downloaded archive. Unlisted companies (blank stock code) are skipped.
func parseCorpCodeZip(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open corp code archive: %w", err)
	}

	var doc corpCodeXML
	found := false
	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, "CORPCODE.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = xml.NewDecoder(rc).Decode(&doc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode corp code XML: %w", err)
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("CORPCODE.xml not in archive")
	}

	index := make(map[string]string, len(doc.List))
	for _, entry := range doc.List {
		stock := strings.TrimSpace(entry.StockCode)
		if stock == "" {
			continue
		}
		index[stock] = strings.TrimSpace(entry.CorpCode)
	}

	if len(index) == 0 {
		return nil, fmt.Errorf("corp code index empty")
	}
	return index, nil
}
