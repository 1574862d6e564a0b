package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/pkg/config"
	"github.com/wonny/sevensplit/pkg/httputil"
	"github.com/wonny/sevensplit/pkg/logger"
)

func testClient(t *testing.T) (*httputil.Client, *logger.Logger) {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		Database: config.DatabaseConfig{URL: "dummy"},
	}
	log := logger.New(cfg)
	return httputil.New(cfg, log).DisableRetry(), log
}

func captureServer(t *testing.T, got *webhookPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, got))
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestOnRunStart(t *testing.T) {
	var got webhookPayload
	srv := captureServer(t, &got)
	defer srv.Close()

	client, log := testClient(t)
	n := NewDiscordNotifier(srv.URL, client, log)

	err := n.OnRunStart(context.Background(), 2500, "세븐스플릿 21 체크리스트")
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "세븐스플릿 Bot", got.Username)
	assert.Contains(t, got.Embeds[0].Description, "2,500개 종목")
	assert.Contains(t, got.Embeds[0].Description, "세븐스플릿 21 체크리스트")
}

func TestOnRunComplete_DetailCap(t *testing.T) {
	var got webhookPayload
	srv := captureServer(t, &got)
	defer srv.Close()

	client, log := testClient(t)
	n := NewDiscordNotifier(srv.URL, client, log)

	passed := make([]contracts.StockRecord, 12)
	for i := range passed {
		passed[i] = contracts.StockRecord{
			Code:      "00593" + string(rune('0'+i%10)),
			Name:      "종목",
			MarketCap: 1_500 * 100_000_000,
			PER:       contracts.Float(12.5),
			PBR:       contracts.Float(1.1),
			DivYield:  contracts.Float(3.2),
			ROEAvg3Y:  15.0,
			FScore:    7,
		}
	}

	err := n.OnRunComplete(context.Background(), passed, 2500, 130*time.Second, "세븐스플릿 21 체크리스트")
	require.NoError(t, err)

	// summary + detail + overflow notice
	require.Len(t, got.Embeds, 3)
	assert.Len(t, got.Embeds[1].Fields, 10)
	assert.Contains(t, got.Embeds[2].Description, "나머지 2개")

	var elapsed string
	for _, f := range got.Embeds[0].Fields {
		if strings.Contains(f.Name, "실행 시간") {
			elapsed = f.Value
		}
	}
	assert.Equal(t, "130.0초", elapsed)
}

func TestOnRunComplete_NoPassedStocks(t *testing.T) {
	var got webhookPayload
	srv := captureServer(t, &got)
	defer srv.Close()

	client, log := testClient(t)
	n := NewDiscordNotifier(srv.URL, client, log)

	err := n.OnRunComplete(context.Background(), nil, 2500, time.Minute, "배당주 전략")
	require.NoError(t, err)
	require.Len(t, got.Embeds, 1)
	assert.Contains(t, got.Embeds[0].Description, "0개 종목")
}

func TestOnRunError(t *testing.T) {
	var got webhookPayload
	srv := captureServer(t, &got)
	defer srv.Close()

	client, log := testClient(t)
	n := NewDiscordNotifier(srv.URL, client, log)

	err := n.OnRunError(context.Background(), "종목 리스트 조회 실패")
	require.NoError(t, err)
	require.Len(t, got.Embeds, 1)
	assert.Contains(t, got.Embeds[0].Description, "종목 리스트 조회 실패")
}

func TestDisabledWithoutWebhookURL(t *testing.T) {
	client, log := testClient(t)
	n := NewDiscordNotifier("", client, log)

	ctx := context.Background()
	assert.NoError(t, n.OnRunStart(ctx, 100, "x"))
	assert.NoError(t, n.OnRunComplete(ctx, nil, 100, time.Second, "x"))
	assert.NoError(t, n.OnRunError(ctx, "x"))
}

func TestRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client, log := testClient(t)
	n := NewDiscordNotifier(srv.URL, client, log)

	err := n.OnRunError(context.Background(), "x")
	assert.Error(t, err)
}

func TestComma(t *testing.T) {
	assert.Equal(t, "0", comma(0))
	assert.Equal(t, "999", comma(999))
	assert.Equal(t, "1,000", comma(1000))
	assert.Equal(t, "2,534,123", comma(2534123))
}
