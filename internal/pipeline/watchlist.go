package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/selection"
)

// WatchlistResult is the outcome of a watchlist ranking
type WatchlistResult struct {
	Run
	NotePath   string                  `json:"note_path"`
	SnapshotID string                  `json:"snapshot_id,omitempty"`
	Ranked     []contracts.ScoreRecord `json:"ranked"`
}

// WatchlistRanking ranks the watchlist, writes a dated note and stores a
// snapshot when a store is configured.
func (o *Orchestrator) WatchlistRanking(ctx context.Context, tickers []string) (*WatchlistResult, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	run, start := o.startRun("watchlist")

	opts := o.deps.Ranker.DefaultOptions()
	ranked, err := o.deps.Ranker.RankTickersWithFundamentals(ctx, tickers, opts)
	if err != nil {
		return nil, fmt.Errorf("rank watchlist: %w", err)
	}
	run.stage("ranking")

	md, err := report.Generate(report.Payload{
		Title:   "Watchlist Ranking",
		Date:    run.Date,
		Tickers: tickers,
		Summary: "Scheduled factor ranking of the watchlist.",
		Scores:  ranked,
	})
	if err != nil {
		return nil, err
	}
	path, err := o.deps.Vault.Write(fmt.Sprintf("Watchlist/Ranking %s.md", run.Date), report.FrontMatter{
		{Key: "type", Value: "ranking"},
		{Key: "date", Value: run.Date},
		{Key: "run_id", Value: run.RunID},
		{Key: "tickers", Value: tickers},
	}, md)
	if err != nil {
		return nil, fmt.Errorf("write watchlist note: %w", err)
	}
	run.stage("note")

	result := &WatchlistResult{NotePath: path, Ranked: ranked}
	if o.deps.Snapshots != nil {
		params := selection.NewSnapshotParams(opts, o.deps.ProfileHash, tickers)
		id, err := o.deps.Snapshots.SaveFundamentals(ctx, params, ranked)
		if err != nil {
			// snapshot failures do not fail the run
			o.logger.WithError(err).Error("Failed to save ranking snapshot")
		} else {
			result.SnapshotID = id
			run.stage("snapshot")
		}
	}

	o.finishRun("watchlist", run, start)
	result.Run = *run
	return result, nil
}
