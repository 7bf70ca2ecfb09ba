package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/selection"
)

// DipRequest configures a dip candidate run. A nil Screen uses the
// orchestrator default.
type DipRequest struct {
	Theme   string
	Tickers []string
	Screen  *selection.DipScreenConfig
	Save    bool
}

// DipResult is the outcome of a dip candidate run
type DipResult struct {
	Run
	Theme    string                   `json:"theme"`
	Top      []selection.DipCandidate `json:"top"`
	CSVPath  string                   `json:"csv_path,omitempty"`
	NotePath string                   `json:"note_path,omitempty"`
}

// DipCandidates ranks tickers, attaches the 180-day drawdown, screens for
// dips and optionally saves a CSV and a note.
func (o *Orchestrator) DipCandidates(ctx context.Context, req DipRequest) (*DipResult, error) {
	if len(req.Tickers) == 0 {
		return nil, ErrNoTickers
	}
	theme, err := cleanTheme(req.Theme)
	if err != nil {
		return nil, err
	}
	run, start := o.startRun("dip")

	ranked, err := o.rank(ctx, req.Tickers)
	if err != nil {
		return nil, err
	}
	run.stage("ranking")

	enriched := make([]selection.DipCandidate, len(ranked))
	for i, r := range ranked {
		enriched[i] = selection.DipCandidate{ScoreRecord: r, Drawdown180: o.Drawdown180(ctx, r.Ticker)}
	}
	run.stage("drawdown")

	cfg := o.deps.DipScreen
	if req.Screen != nil {
		cfg = *req.Screen
	}
	top := selection.NewScreener(cfg, o.logger).Screen(enriched)
	run.stage("screen")

	result := &DipResult{Theme: theme, Top: top}
	if req.Save {
		result.CSVPath, err = within(o.deps.ProcessedPath, "dip", fmt.Sprintf("dip_candidates_%s_%s.csv", theme, run.Date))
		if err != nil {
			return nil, err
		}
		if err := report.WriteCandidatesCSV(result.CSVPath, top); err != nil {
			return nil, err
		}

		notePath := fmt.Sprintf("Markets/%s/Dip Candidates %s.md", theme, run.Date)
		result.NotePath, err = o.deps.Vault.Write(notePath, report.FrontMatter{
			{Key: "type", Value: "report"},
			{Key: "theme", Value: theme},
			{Key: "date", Value: run.Date},
		}, report.DipNote(theme, top, result.CSVPath))
		if err != nil {
			return nil, fmt.Errorf("write dip note: %w", err)
		}
		run.stage("save")
	}

	o.finishRun("dip", run, start)
	result.Run = *run
	return result, nil
}
