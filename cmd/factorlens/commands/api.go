package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/api"
	"github.com/wonny/factorlens/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /metrics                   - Prometheus metrics
  POST /api/rank/candidates       - 후보 레코드 랭킹
  POST /api/rank/tickers          - 티커 펀더멘털 랭킹
  GET  /api/filings/{ticker}      - SEC 공시
  GET  /api/events/{ticker}       - 공시 이벤트 점수
  POST /api/dip-candidates        - 딥 후보 스크리닝
  GET  /api/reports/theme         - 테마 개요 (md|html)
  POST /api/portfolio/evaluate    - 보유 종목 국면 평가

Example:
  go run ./cmd/factorlens api
  go run ./cmd/factorlens api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	var gatherer prometheus.Gatherer
	if a.cfg.MetricsEnabled {
		gatherer = a.registry
	}

	router := api.NewRouter(api.Handlers{
		Ranking: handlers.NewRankingHandler(a.engine, log),
		Filings: handlers.NewFilingsHandler(a.sec, a.events, log),
		Reports: handlers.NewReportHandler(a.orchestrator, a.evaluator, log),
	}, a.metrics, gatherer, log)

	server := api.NewServer(api.OptionsFromConfig(a.cfg), router, log)

	// Serve until SIGINT/SIGTERM, then drain
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	select {
	case <-server.Ready():
		fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%d\n", server.Port())
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
	case err := <-errCh:
		return fmt.Errorf("start server: %w", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
