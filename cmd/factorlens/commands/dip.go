package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/pipeline"
)

// dipCmd represents the dip command
var dipCmd = &cobra.Command{
	Use:   "dip [TICKER...]",
	Short: "딥 후보 스크리닝",
	Long: `티커를 랭킹한 뒤 180일 낙폭, 3개월 모멘텀, 이벤트 점수로 딥 후보를 고릅니다.
조건을 통과한 종목이 없으면 점수 상위 N개를 그대로 사용합니다.
티커를 생략하면 WATCHLIST 를 사용합니다.

결과는 CSV(PROCESSED_PATH/dip)와 노트(Markets/{theme})로 저장됩니다.

Example:
  go run ./cmd/factorlens dip --theme semis NVDA AMD AVGO MU
  go run ./cmd/factorlens dip --theme semis --top-n 3 --drawdown-min 0.3 NVDA AMD`,
	RunE: runDip,
}

var (
	dipTheme       string
	dipTopN        int
	dipDrawdownMin float64
	dipMom3Min     float64
	dipEventMin    float64
	dipNoSave      bool
	dipJSON        bool
)

func init() {
	rootCmd.AddCommand(dipCmd)

	dipCmd.Flags().StringVar(&dipTheme, "theme", "", "theme name (used in note and CSV paths)")
	_ = dipCmd.MarkFlagRequired("theme")
	dipCmd.Flags().IntVar(&dipTopN, "top-n", 0, "number of candidates (default from profile)")
	dipCmd.Flags().Float64Var(&dipDrawdownMin, "drawdown-min", 0, "minimum 180-day drawdown")
	dipCmd.Flags().Float64Var(&dipMom3Min, "mom3-min", 0, "minimum 3-month momentum")
	dipCmd.Flags().Float64Var(&dipEventMin, "event-min", 0, "minimum event score")
	dipCmd.Flags().BoolVar(&dipNoSave, "no-save", false, "skip CSV and note output")
	dipCmd.Flags().BoolVar(&dipJSON, "json", false, "print the result as JSON")
}

func runDip(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := upperTickers(args)
	if len(tickers) == 0 {
		tickers = a.cfg.Scoring.Watchlist
	}

	screen := a.orchestrator.DipScreen()
	flags := cmd.Flags()
	if flags.Changed("top-n") {
		screen.TopN = dipTopN
	}
	if flags.Changed("drawdown-min") {
		screen.DrawdownMin = dipDrawdownMin
	}
	if flags.Changed("mom3-min") {
		screen.Mom3Min = dipMom3Min
	}
	if flags.Changed("event-min") {
		screen.EventMin = dipEventMin
	}

	result, err := a.orchestrator.DipCandidates(cmd.Context(), pipeline.DipRequest{
		Theme:   dipTheme,
		Tickers: tickers,
		Screen:  &screen,
		Save:    !dipNoSave,
	})
	if errors.Is(err, pipeline.ErrNoTickers) {
		return fmt.Errorf("no tickers given and WATCHLIST is empty")
	}
	if err != nil {
		return fmt.Errorf("dip candidates: %w", err)
	}

	out := cmd.OutOrStdout()
	if dipJSON {
		return PrintJSON(out, result)
	}

	PrintRunHeader(out, "Dip Candidates: "+result.Theme, result.Run)
	columns := []string{"#", "Ticker", "Score", "Dip", "DD180", "Mom3", "Event"}
	widths := []int{3, 8, 7, 7, 7, 7, 6}
	PrintTableHeader(out, columns, widths)
	for i, c := range result.Top {
		PrintTableRow(out, []string{
			strconv.Itoa(i + 1),
			c.Ticker,
			f4(c.Score),
			f4(c.DipBonus),
			optional(c.Drawdown180),
			optional(c.Mom3),
			f3(c.EventScore),
		}, widths)
	}
	fmt.Fprintln(out)
	if result.CSVPath != "" {
		PrintSuccess(out, "CSV: "+result.CSVPath)
	}
	if result.NotePath != "" {
		PrintSuccess(out, "Note: "+result.NotePath)
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return f3(*v)
}
