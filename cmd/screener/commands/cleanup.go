package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "데이터 정리 도구",
	Long: `데이터베이스 정리 작업을 수행합니다.

Example:
  screener cleanup results`,
}

var cleanupResultsCmd = &cobra.Command{
	Use:   "results",
	Short: "오래된 스크리닝 결과 정리",
	Long: `보관 기간이 지난 스크리닝 결과와 퍼널 통계를 삭제합니다.

실행 이력(runs)은 보관합니다. 보관 일수는 --days 플래그,
미지정 시 SCREENING_RETENTION_DAYS 설정을 따릅니다.

Example:
  screener cleanup results
  screener cleanup results --days 90`,
	RunE: runCleanupResults,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupResultsCmd)

	// Flags
	cleanupResultsCmd.Flags().IntVar(&cleanupDays, "days", 0, "보관 일수 (기본값: SCREENING_RETENTION_DAYS)")
}

func runCleanupResults(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Screening Result Cleanup ===")

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	days := cleanupDays
	if days <= 0 {
		days = app.cfg.Screening.RetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Deleting results older than %d days...\n", days)
	deleted, err := app.store.DeleteOlderThan(ctx, days)
	if err != nil {
		return fmt.Errorf("❌ Cleanup failed: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Deleted %d rows", deleted))
	return nil
}
