package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/factorlens/internal/selection"
)

// CandidateColumns is the dip candidate CSV header
var CandidateColumns = []string{
	"ticker", "sector", "score", "base_score", "dip_bonus",
	"valuation", "growth", "profitability", "quality", "drawdown180",
	"mom1", "mom3", "mom6", "mom12",
	"pe", "pb", "eps", "returnOnEquity", "revenueGrowth", "profitMargins", "eventScore",
}

// WriteCandidatesCSV writes rows to path, creating parent directories
func WriteCandidatesCSV(path string, rows []selection.DipCandidate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CandidateColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(candidateRecord(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func candidateRecord(r selection.DipCandidate) []string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.Ticker, r.Sector, num(r.Score), num(r.BaseScore), num(r.DipBonus),
		num(r.Valuation), num(r.Growth), num(r.Profitability), num(r.Quality), formatOptional(r.Drawdown180),
		formatOptional(r.Mom1), formatOptional(r.Mom3), formatOptional(r.Mom6), formatOptional(r.Mom12),
		formatOptional(r.PE), formatOptional(r.PB), formatOptional(r.EPS),
		formatOptional(r.ReturnOnEquity), formatOptional(r.RevenueGrowth), formatOptional(r.ProfitMargins),
		num(r.EventScore),
	}
}
