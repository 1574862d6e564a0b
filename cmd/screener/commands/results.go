package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "통과 종목 조회",
	Long: `스크리닝을 통과한 종목을 시가총액 순으로 표시합니다.

날짜를 지정하지 않으면 해당 전략의 최근 스크리닝 날짜를 사용합니다.

Example:
  go run ./cmd/screener results
  go run ./cmd/screener results --strategy dividend --date 2026-08-28`,
	RunE: showResults,
}

var (
	resultsStrategyID string
	resultsDate       string
)

func init() {
	rootCmd.AddCommand(resultsCmd)

	// Flags
	resultsCmd.Flags().StringVar(&resultsStrategyID, "strategy", "seven_split_21", "조회할 전략 ID")
	resultsCmd.Flags().StringVar(&resultsDate, "date", "", "조회 날짜 (YYYY-MM-DD, 기본값: 최근 실행일)")
}

func showResults(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var date time.Time
	if resultsDate != "" {
		date, err = time.Parse("2006-01-02", resultsDate)
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", resultsDate, err)
		}
	} else {
		date, err = app.store.LatestScreenDate(ctx, resultsStrategyID)
		if err != nil {
			return fmt.Errorf("latest screen date: %w", err)
		}
		if date.IsZero() {
			PrintInfo(fmt.Sprintf("No results for strategy %s yet", resultsStrategyID))
			return nil
		}
	}

	stocks, err := app.store.ListPassedByDate(ctx, date, resultsStrategyID)
	if err != nil {
		return fmt.Errorf("list passed stocks: %w", err)
	}

	fmt.Printf("Strategy %s on %s: %d passed\n\n", resultsStrategyID, date.Format("2006-01-02"), len(stocks))
	if len(stocks) == 0 {
		return nil
	}

	columns := []string{"Code", "Name", "Market", "MarketCap", "PER", "PBR", "DivYield", "F-Score"}
	widths := []int{8, 20, 8, 12, 8, 8, 8, 7}
	PrintTableHeader(columns, widths)

	for _, s := range stocks {
		PrintTableRow([]string{
			s.Code,
			s.Name,
			s.Market,
			fmt.Sprintf("%d억", s.MarketCap/100_000_000),
			formatRatio(s.PER),
			formatRatio(s.PBR),
			formatRatio(s.DivYield),
			fmt.Sprintf("%d", s.FScore),
		}, widths)
	}

	return nil
}

func formatRatio(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
