package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintRunHeader prints a formatted pipeline run header
func PrintRunHeader(w io.Writer, title string, run pipeline.Run) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
	fmt.Fprintf(w, "  Run ID    : %s\n", run.RunID)
	fmt.Fprintf(w, "  Date      : %s\n", run.Date)
	fmt.Fprintf(w, "  Stages    : %s\n", strings.Join(run.CompletedStages, " → "))
	fmt.Fprintf(w, "  Duration  : %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

var (
	scoreColumns = []string{"#", "Ticker", "Sector", "Score", "Base", "Dip", "Val", "Growth", "Prof", "Quality"}
	scoreWidths  = []int{3, 8, 22, 7, 7, 7, 6, 6, 6, 7}
)

// PrintScoreTable prints ranked records, best first
func PrintScoreTable(w io.Writer, records []contracts.ScoreRecord) {
	PrintTableHeader(w, scoreColumns, scoreWidths)
	for i, r := range records {
		PrintTableRow(w, []string{
			strconv.Itoa(i + 1),
			r.Ticker,
			truncate(r.Sector, scoreWidths[2]),
			f4(r.Score),
			f4(r.BaseScore),
			f4(r.DipBonus),
			f3(r.Valuation),
			f3(r.Growth),
			f3(r.Profitability),
			f3(r.Quality),
		}, scoreWidths)
	}
}

func f3(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// upperTickers normalizes CLI ticker arguments
func upperTickers(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		for _, t := range strings.Split(a, ",") {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
