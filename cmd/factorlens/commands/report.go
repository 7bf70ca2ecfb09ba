package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "리포트/노트 생성",
	Long: `테마 리포트와 포트폴리오 국면 리포트를 생성해 노트 볼트에 저장합니다.

Subcommands:
  theme      - 뉴스 + SEC 공시 + 랭킹 테마 리포트
  portfolio  - 보유 종목 20일 수익률 국면 리포트

Example:
  go run ./cmd/factorlens report theme --theme ai NVDA MSFT GOOGL
  go run ./cmd/factorlens report theme --theme ai --overview --html NVDA
  go run ./cmd/factorlens report portfolio "AAPL@2024-10-01:185" MSFT
  go run ./cmd/factorlens report portfolio --detailed AAPL MSFT`,
}

var (
	reportThemeCmd = &cobra.Command{
		Use:   "theme [TICKER...]",
		Short: "테마 리포트",
		RunE:  runReportTheme,
	}

	reportPortfolioCmd = &cobra.Command{
		Use:   "portfolio HOLDING...",
		Short: "포트폴리오 국면 리포트",
		Long: `보유 종목을 평가합니다. 형식:
  AAPL                    티커만
  AAPL@2024-10-01:185     진입일과 진입가
  "AAPL 2024-10-01 185"   공백 구분 (따옴표 필요)

--detailed 는 노트를 쓰지 않고 변동성(30/60일), 180일 최대낙폭,
SPY 90일 상관, 모멘텀을 국면과 함께 출력합니다.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReportPortfolio,
	}

	reportTheme    string
	reportOverview bool
	reportLookback int
	reportHTML     bool
	reportDetailed bool
	reportJSON     bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportThemeCmd)
	reportCmd.AddCommand(reportPortfolioCmd)

	reportThemeCmd.Flags().StringVar(&reportTheme, "theme", "", "theme name")
	_ = reportThemeCmd.MarkFlagRequired("theme")
	reportThemeCmd.Flags().BoolVar(&reportOverview, "overview", false, "print the overview without writing a note")
	reportThemeCmd.Flags().IntVar(&reportLookback, "lookback", pipeline.ThemeLookbackDays, "news lookback in days (overview only)")
	reportThemeCmd.Flags().BoolVar(&reportHTML, "html", false, "print HTML instead of markdown")

	reportPortfolioCmd.Flags().BoolVar(&reportDetailed, "detailed", false, "add price metrics instead of writing the note")
	reportPortfolioCmd.Flags().BoolVar(&reportJSON, "json", false, "print detailed evaluations as JSON")
}

func runReportTheme(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := upperTickers(args)
	if len(tickers) == 0 {
		tickers = a.cfg.Scoring.Watchlist
	}
	out := cmd.OutOrStdout()

	var md string
	if reportOverview {
		md, err = a.orchestrator.ThemeOverview(cmd.Context(), reportTheme, tickers, reportLookback)
		if err != nil {
			return fmt.Errorf("theme overview: %w", err)
		}
	} else {
		result, err := a.orchestrator.ThemeReport(cmd.Context(), reportTheme, tickers)
		if errors.Is(err, pipeline.ErrNoTickers) {
			return fmt.Errorf("no tickers given and WATCHLIST is empty")
		}
		if err != nil {
			return fmt.Errorf("theme report: %w", err)
		}
		PrintRunHeader(out, "Theme Report: "+result.Theme, result.Run)
		PrintSuccess(out, "Note: "+result.NotePath)
		fmt.Fprintln(out)
		md = result.Markdown
	}

	return printMarkdown(cmd, md)
}

func runReportPortfolio(cmd *cobra.Command, args []string) error {
	holdings := portfolio.ParseHoldingsText(strings.Join(args, "\n"))
	if len(holdings) == 0 {
		return fmt.Errorf("no holdings parsed from %q", strings.Join(args, " "))
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if reportDetailed {
		evals, err := a.evaluator.EvaluateDetailed(cmd.Context(), portfolio.Tickers(holdings))
		if err != nil {
			return fmt.Errorf("evaluate portfolio: %w", err)
		}
		if reportJSON {
			return PrintJSON(cmd.OutOrStdout(), evals)
		}
		printDetailedEvaluations(cmd.OutOrStdout(), evals)
		return nil
	}

	result, err := a.orchestrator.PortfolioReport(cmd.Context(), holdings)
	if err != nil {
		return fmt.Errorf("portfolio report: %w", err)
	}

	out := cmd.OutOrStdout()
	PrintRunHeader(out, "Portfolio Phase Report", result.Run)
	for _, e := range result.Evaluations {
		line := fmt.Sprintf("%-8s %-9s ret20=%s", e.Ticker, e.Phase, optional(e.Ret20))
		if e.Note != "" {
			line += "  (" + e.Note + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	PrintSuccess(out, "Note: "+result.NotePath)
	return nil
}

// printDetailedEvaluations prints phases and price metrics as a table
func printDetailedEvaluations(w io.Writer, evals []portfolio.DetailedEvaluation) {
	columns := []string{"Ticker", "Phase", "Ret20", "Vol30", "Vol60", "DD180", "CorrSPY", "Mom3", "Note"}
	widths := []int{8, 9, 8, 8, 8, 8, 8, 8, 20}
	PrintTableHeader(w, columns, widths)
	for _, e := range evals {
		PrintTableRow(w, []string{
			e.Ticker,
			string(e.Phase),
			optional(e.Ret20),
			optional(e.Vol30),
			optional(e.Vol60),
			optional(e.DD180),
			optional(e.CorrSPY),
			optional(e.Mom3),
			e.Note,
		}, widths)
	}
}

func printMarkdown(cmd *cobra.Command, md string) error {
	if reportHTML {
		html, err := report.RenderHTML(md)
		if err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		md = html
	}
	fmt.Fprintln(cmd.OutOrStdout(), md)
	return nil
}
