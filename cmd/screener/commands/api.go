package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sevensplit/internal/api"
	"github.com/wonny/sevensplit/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 전략/결과 조회 엔드포인트 제공
- 스크리닝 실행 트리거 제공
- WebSocket 진행률 스트리밍

Endpoints:
  GET  /health                 - Health check
  GET  /api/strategies         - 전략 목록 조회
  POST /api/screening/run      - 스크리닝 실행 트리거
  GET  /api/screening/results  - 통과 종목 조회
  GET  /api/screening/funnel   - 퍼널 통계 조회
  WS   /ws/progress            - 진행률 스트림

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT 환경변수)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== 세븐스플릿 API Server ===")

	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	// Override port if flag is set
	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	log := app.log
	log.WithFields(map[string]interface{}{
		"port": app.cfg.Port,
		"env":  app.cfg.Env,
	}).Info("Initializing API server")

	// WebSocket hub subscribes to orchestrator events
	hub := api.NewHub(log)
	app.orchestrator.OnProgress(hub.BroadcastProgress)
	app.orchestrator.OnComplete(hub.BroadcastComplete)

	screeningHandler := handlers.NewScreeningHandler(app.orchestrator, app.registry, app.store, log)
	router := api.NewRouter(screeningHandler, hub, log)
	server := api.New(app.cfg, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/strategies")
	fmt.Println("  GET  /api/strategies/{id}")
	fmt.Println("  POST /api/screening/run")
	fmt.Println("  GET  /api/screening/runs")
	fmt.Println("  GET  /api/screening/results")
	fmt.Println("  GET  /api/screening/funnel")
	fmt.Println("  WS   /ws/progress")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
