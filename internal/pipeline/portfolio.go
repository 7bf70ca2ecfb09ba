package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/signals"
)

// PortfolioNotePath is where the phase report is written
const PortfolioNotePath = "Portfolios/Phase Report.md"

// PortfolioResult is the outcome of a portfolio phase report
type PortfolioResult struct {
	Run
	NotePath    string                 `json:"note_path"`
	Markdown    string                 `json:"markdown"`
	Evaluations []portfolio.Evaluation `json:"evaluations"`
}

// PortfolioReport evaluates holdings, merges their ranking scores and
// writes the phase report note.
func (o *Orchestrator) PortfolioReport(ctx context.Context, holdings []portfolio.Holding) (*PortfolioResult, error) {
	tickers := portfolio.Tickers(holdings)
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	run, start := o.startRun("portfolio")

	evals, err := o.deps.Evaluator.Evaluate(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("evaluate holdings: %w", err)
	}
	run.stage("phases")

	ranked, err := o.rank(ctx, tickers)
	if err != nil {
		return nil, err
	}
	run.stage("ranking")

	byTicker := make(map[string]contracts.ScoreRecord, len(ranked))
	for _, r := range ranked {
		byTicker[r.Ticker] = r
	}
	scores := make([]contracts.ScoreRecord, 0, len(evals))
	rows := make([]report.HoldingRow, 0, len(evals))
	for _, e := range evals {
		rec, ok := byTicker[e.Ticker]
		if !ok {
			rec = contracts.ScoreRecord{Ticker: e.Ticker}
		}
		scores = append(scores, rec)
		rows = append(rows, report.HoldingRow{Evaluation: e, Closes: o.trend(ctx, e.Ticker)})
	}

	md, err := report.Generate(report.Payload{
		Title:   "Portfolio Phase Report",
		Date:    run.Date,
		Tickers: tickers,
		Summary: "Phase signals for current holdings.",
		Scores:  scores,
	})
	if err != nil {
		return nil, err
	}
	md += "\n" + report.PortfolioOverview(rows) + "\n"

	path, err := o.deps.Vault.Write(PortfolioNotePath, report.FrontMatter{
		{Key: "type", Value: "portfolio"},
		{Key: "date", Value: run.Date},
		{Key: "holdings", Value: tickers},
	}, md)
	if err != nil {
		return nil, fmt.Errorf("write portfolio note: %w", err)
	}
	run.stage("note")

	o.finishRun("portfolio", run, start)
	return &PortfolioResult{Run: *run, NotePath: path, Markdown: md, Evaluations: evals}, nil
}

// trend returns the last HistoryDays closes for a sparkline
func (o *Orchestrator) trend(ctx context.Context, ticker string) []float64 {
	closes := o.closes(ctx, ticker)
	if n := o.deps.Present.HistoryDays; n > 0 && len(closes) > n {
		closes = closes[len(closes)-n:]
	}
	return closes
}

// Drawdown180 returns the 180-day drawdown of ticker, nil when unavailable
func (o *Orchestrator) Drawdown180(ctx context.Context, ticker string) *float64 {
	closes := o.closes(ctx, ticker)
	dd := signals.Drawdown(closes, signals.DipLookback)
	if dd == nil {
		return nil
	}
	v := max(0, *dd)
	return &v
}
