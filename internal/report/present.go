package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/selection"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values as block characters scaled between min and max.
// A flat series uses the middle block.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if scalar.EqualWithinAbsOrRel(lo, hi, 0, 1e-9) {
		return strings.Repeat(string(sparks[len(sparks)/2]), len(values))
	}

	var b strings.Builder
	top := float64(len(sparks) - 1)
	for _, v := range values {
		pos := (v - lo) / (hi - lo)
		idx := int(scalar.RoundEven(pos*top, 0))
		idx = min(len(sparks)-1, max(0, idx))
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

// Table renders a markdown table
func Table(headers []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "|"+strings.Join(sep, "|")+"|")
	for _, r := range rows {
		lines = append(lines, "| "+strings.Join(r, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// ThemeOverview is the data behind a theme overview section
type ThemeOverview struct {
	Theme   string
	News    []contracts.NewsHit
	Filings []contracts.Filing
	Ranked  []contracts.ScoreRecord
}

// Markdown renders the overview with at most filingsMax filings
func (o ThemeOverview) Markdown(filingsMax int) string {
	md := []string{fmt.Sprintf("## %s Theme Overview", o.Theme), "", "### Top News"}
	if len(o.News) == 0 {
		md = append(md, "_No news found_")
	}
	for _, h := range o.News {
		md = append(md, fmt.Sprintf("- [%s](%s) (%s)", h.Title, h.URL, h.Source))
	}

	md = append(md, "", "### Recent SEC Filings")
	filings := o.Filings
	if filingsMax >= 0 && len(filings) > filingsMax {
		filings = filings[:filingsMax]
	}
	if len(filings) == 0 {
		md = append(md, "_No filings found_")
	}
	for _, f := range filings {
		md = append(md, fmt.Sprintf("- %s | %s | %s | %s", f.Form, f.FilingDate, f.Title, f.URL))
	}

	rows := make([][]string, 0, len(o.Ranked))
	for _, r := range o.Ranked {
		rows = append(rows, []string{
			r.Ticker,
			fmt.Sprintf("%.3f", r.BaseScore),
			fmt.Sprintf("%.3f", r.DipBonus),
			fmt.Sprintf("%.3f", r.Score),
			formatOptional(r.PE),
			formatOptional(r.PB),
			formatOptional(r.EPS),
		})
	}
	md = append(md, "", "### Scores (with key metrics)")
	md = append(md, Table([]string{"Ticker", "Base", "Dip", "Total", "PE", "PB", "EPS"}, rows))
	return strings.Join(md, "\n")
}

// HoldingRow is one portfolio overview line
type HoldingRow struct {
	portfolio.Evaluation
	Closes []float64
}

// PortfolioOverview renders phases with a price sparkline per holding
func PortfolioOverview(rows []HoldingRow) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Ticker, string(r.Phase), formatOptional(r.Ret20), Sparkline(r.Closes)})
	}
	return strings.Join([]string{
		"## Portfolio Overview",
		"",
		Table([]string{"Ticker", "Phase", "ret20", "Trend"}, cells),
	}, "\n")
}

// DipNote renders the dip candidate note body
func DipNote(theme string, top []selection.DipCandidate, csvPath string) string {
	md := []string{fmt.Sprintf("# Dip Candidates - %s", theme), "", "## Top Candidates"}
	for i, c := range top {
		md = append(md, fmt.Sprintf("%d. %s: score=%.3f, dip=%.3f, dd180=%.2f",
			i+1, c.Ticker, c.Score, c.DipBonus, orZero(c.Drawdown180)))
	}
	md = append(md, "", "## Links")
	if csvPath != "" {
		md = append(md, "- CSV: "+csvPath)
	}
	return strings.Join(md, "\n")
}
