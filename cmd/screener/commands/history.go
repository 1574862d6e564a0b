package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "최근 스크리닝 실행 이력",
	Long: `최근 스크리닝 실행 이력을 표시합니다.

Example:
  go run ./cmd/screener history
  go run ./cmd/screener history --limit 50`,
	RunE: showHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)

	// Flags
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "표시할 실행 수")
}

func showHistory(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := app.store.ListRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		PrintInfo("No screening runs yet")
		return nil
	}

	columns := []string{"ID", "Started", "Strategy", "Trigger", "Total", "Passed", "Elapsed", "Status"}
	widths := []int{6, 19, 18, 9, 7, 7, 9, 10}
	PrintTableHeader(columns, widths)

	for _, run := range runs {
		status := string(run.Status)
		if run.Status == "failed" && run.ErrorMessage != "" {
			status = fmt.Sprintf("failed: %s", run.ErrorMessage)
		}
		PrintTableRow([]string{
			fmt.Sprintf("#%d", run.ID),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.StrategyID,
			string(run.Trigger),
			fmt.Sprintf("%d", run.TotalStocks),
			fmt.Sprintf("%d", run.PassedStocks),
			fmt.Sprintf("%.1fs", run.Elapsed.Seconds()),
			status,
		}, widths)
	}

	return nil
}
