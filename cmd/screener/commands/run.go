package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sevensplit/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "스크리닝 1회 실행",
	Long: `전체 상장 종목을 대상으로 스크리닝을 1회 실행합니다.

이 명령어는:
- KRX 시세 스냅샷 + DART 재무 데이터 수집
- 전략 조건 평가 및 퍼널 통계 집계
- 결과 DB 저장 및 Discord 알림 발송

Example:
  go run ./cmd/screener run
  go run ./cmd/screener run --strategy value_investing`,
	RunE: runScreening,
}

var runStrategyID string

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runStrategyID, "strategy", "", "실행할 전략 ID (기본값: settings의 default_strategy)")
}

func runScreening(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 세븐스플릿 Screening Run ===")

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	// Ctrl+C cancels the walk; partial results stay persisted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		fmt.Println("\n⚠️  Cancelling run...")
		cancel()
	}()

	// Progress to stdout at the orchestrator's cadence
	app.orchestrator.OnProgress(func(p contracts.Progress) {
		fmt.Printf("[%s] %d/%d (%.1f%%)\n", p.Strategy, p.Current, p.Total, p.Percent)
	})

	start := time.Now()
	summary := app.orchestrator.StartRun(ctx, runStrategyID, contracts.TriggerManual)

	fmt.Println()
	PrintDoubleSeparator()
	if summary.Success {
		PrintSuccess(fmt.Sprintf("%s (%s)", summary.StrategyName, summary.StrategyID))
		fmt.Printf("   평가 종목 : %d\n", summary.Total)
		fmt.Printf("   통과 종목 : %d\n", summary.Passed)
		fmt.Printf("   소요 시간 : %.1fs\n", summary.ElapsedSeconds)
	} else {
		PrintError(fmt.Sprintf("Run failed after %.1fs: %s", time.Since(start).Seconds(), summary.Message))
	}
	PrintDoubleSeparator()

	if !summary.Success {
		return fmt.Errorf("screening run failed: %s", summary.Message)
	}
	return nil
}
