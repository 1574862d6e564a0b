package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/pkg/httputil"
	"github.com/wonny/sevensplit/pkg/logger"
)

// Discord embed colors
const (
	colorGreen  = 3066993
	colorBlue   = 5814783
	colorAzure  = 3447003
	colorOrange = 15844367
	colorRed    = 15158332
)

// maxDetailStocks caps how many passed stocks are listed in the summary embed
const maxDetailStocks = 10

const botUsername = "세븐스플릿 Bot"

const eok = 100_000_000

// DiscordNotifier implements contracts.NotificationSink over a Discord
// webhook. A missing webhook URL turns every call into a no-op so the
// pipeline never depends on notification availability.
// ⭐ SSOT: 스크리닝 알림 전송은 여기서만
type DiscordNotifier struct {
	webhookURL string
	client     *httputil.Client
	logger     *logger.Logger
}

// NewDiscordNotifier creates a Discord notification sink
func NewDiscordNotifier(webhookURL string, client *httputil.Client, log *logger.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     log.WithField("component", "discord_notifier"),
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// OnRunStart announces the beginning of a universe walk
func (n *DiscordNotifier) OnRunStart(ctx context.Context, total int, strategyName string) error {
	if n.webhookURL == "" {
		return nil
	}

	e := embed{
		Title:       "🚀 스크리닝 시작",
		Description: fmt.Sprintf("**%s** 전략으로 %s개 종목 분석을 시작합니다.", strategyName, comma(total)),
		Color:       colorAzure,
		Footer:      &embedFooter{Text: "시작 시각: " + time.Now().Format("2006-01-02 15:04:05")},
	}
	return n.send(ctx, []embed{e})
}

// OnRunComplete sends the result summary with up to ten passed stocks
func (n *DiscordNotifier) OnRunComplete(ctx context.Context, passed []contracts.StockRecord, total int, elapsed time.Duration, strategyName string) error {
	if n.webhookURL == "" {
		return nil
	}

	now := time.Now()
	summary := embed{
		Title:       "🎯 세븐스플릿 스크리닝 결과",
		Description: fmt.Sprintf("**%d개 종목**이 %s 조건을 모두 통과했습니다.", len(passed), strategyName),
		Color:       colorGreen,
		Fields: []embedField{
			{Name: "📊 전체 종목 수", Value: comma(total) + "개", Inline: true},
			{Name: "✅ 통과 종목 수", Value: comma(len(passed)) + "개", Inline: true},
			{Name: "⏱️ 실행 시간", Value: fmt.Sprintf("%.1f초", elapsed.Seconds()), Inline: true},
		},
		Footer:    &embedFooter{Text: "실행 시각: " + now.Format("2006-01-02 15:04:05")},
		Timestamp: now.Format(time.RFC3339),
	}
	embeds := []embed{summary}

	if len(passed) > 0 {
		detail := embed{
			Title: "📈 통과 종목 목록",
			Color: colorBlue,
		}
		for i, stock := range passed {
			if i >= maxDetailStocks {
				break
			}
			detail.Fields = append(detail.Fields, embedField{
				Name:  fmt.Sprintf("%d. %s (%s)", i+1, stock.Name, stock.Code),
				Value: stockSummary(stock),
			})
		}
		embeds = append(embeds, detail)

		if rest := len(passed) - maxDetailStocks; rest > 0 {
			embeds = append(embeds, embed{
				Description: fmt.Sprintf("*나머지 %d개 종목은 웹 페이지에서 확인하세요.*", rest),
				Color:       colorOrange,
			})
		}
	}

	return n.send(ctx, embeds)
}

// OnRunError reports a failed run
func (n *DiscordNotifier) OnRunError(ctx context.Context, message string) error {
	if n.webhookURL == "" {
		return nil
	}

	e := embed{
		Title:       "⚠️ 스크리닝 실행 실패",
		Description: "```" + message + "```",
		Color:       colorRed,
		Footer:      &embedFooter{Text: "실행 시각: " + time.Now().Format("2006-01-02 15:04:05")},
	}
	return n.send(ctx, []embed{e})
}

func (n *DiscordNotifier) send(ctx context.Context, embeds []embed) error {
	payload := webhookPayload{
		Username: botUsername,
		Embeds:   embeds,
	}

	resp, err := n.client.PostJSON(ctx, n.webhookURL, payload)
	if err != nil {
		n.logger.WithError(err).Error("Discord notification failed")
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success
	if resp.StatusCode >= 300 {
		n.logger.WithField("status", resp.StatusCode).Error("Discord notification rejected")
		return fmt.Errorf("discord webhook: unexpected status %d", resp.StatusCode)
	}

	n.logger.Debug("Discord notification sent")
	return nil
}

func stockSummary(s contracts.StockRecord) string {
	return fmt.Sprintf(
		"**시가총액**: %s억원\n**PER**: %.2f | **PBR**: %.2f\n**ROE**: %.2f%% | **F-Score**: %d점\n**배당수익률**: %.2f%%",
		comma(int(s.MarketCap/eok)),
		deref(s.PER), deref(s.PBR),
		s.ROEAvg3Y, s.FScore,
		deref(s.DivYield),
	)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// comma formats n with thousands separators
func comma(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + comma(-n)
	}
	if len(s) <= 3 {
		return s
	}
	return comma(n/1000) + "," + s[len(s)-3:]
}
