package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/external/sec"
)

// filingsCmd represents the filings command
var filingsCmd = &cobra.Command{
	Use:   "filings TICKER",
	Short: "SEC 공시 조회",
	Long: `SEC EDGAR 최근 공시를 조회하고 키워드 이벤트 점수를 계산합니다.

Example:
  go run ./cmd/factorlens filings AAPL
  go run ./cmd/factorlens filings NVDA --forms 8-K --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runFilings,
}

var (
	filingsForms []string
	filingsLimit int
)

func init() {
	rootCmd.AddCommand(filingsCmd)

	filingsCmd.Flags().StringSliceVar(&filingsForms, "forms", nil, "form types (default 8-K,10-Q,10-K)")
	filingsCmd.Flags().IntVar(&filingsLimit, "limit", 10, "max filings")
}

func runFilings(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	filings, err := a.sec.RecentFilings(cmd.Context(), ticker, filingsForms, filingsLimit)
	if err != nil {
		return fmt.Errorf("fetch filings: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(filings) == 0 {
		PrintWarning(out, fmt.Sprintf("No filings found for %s", ticker))
	} else {
		fmt.Fprintln(out, sec.FormatFilings(filings, len(filings)))
	}

	score, err := a.events.ScoreWithLimit(cmd.Context(), ticker, filingsLimit)
	if err != nil {
		return fmt.Errorf("event score: %w", err)
	}
	fmt.Fprintf(out, "\nEvent score: %s\n", f3(score))
	return nil
}
