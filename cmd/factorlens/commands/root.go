package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profilePath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factorlens",
	Short: "factorlens - 팩터 기반 종목 랭킹 엔진",
	Long: `factorlens Unified CLI

펀더멘털 팩터 랭킹, 딥 보너스, 공시 이벤트 점수.
랭킹 결과는 마크다운 노트와 API로 제공.

Usage:
  go run ./cmd/factorlens [command]

Examples:
  go run ./cmd/factorlens rank tickers AAPL MSFT NVDA
  go run ./cmd/factorlens rank candidates --file candidates.json
  go run ./cmd/factorlens dip --theme semis NVDA AMD AVGO
  go run ./cmd/factorlens report theme --theme ai NVDA MSFT
  go run ./cmd/factorlens api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "scoring profile YAML (overrides SCORE_PROFILE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
