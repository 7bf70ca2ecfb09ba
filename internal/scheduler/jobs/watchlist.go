package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/pkg/logger"
)

// WatchlistRanker runs the watchlist ranking pipeline
type WatchlistRanker interface {
	WatchlistRanking(ctx context.Context, tickers []string) (*pipeline.WatchlistResult, error)
}

// WatchlistRankingJob ranks the configured watchlist after the US close
// ⭐ SSOT: 워치리스트 정기 랭킹은 이 Job에서만
type WatchlistRankingJob struct {
	ranker   WatchlistRanker
	tickers  []string
	schedule string
	logger   *logger.Logger
}

// NewWatchlistRankingJob creates a new watchlist ranking job
func NewWatchlistRankingJob(ranker WatchlistRanker, tickers []string, schedule string, log *logger.Logger) *WatchlistRankingJob {
	if schedule == "" {
		schedule = DefaultWatchlistSchedule
	}
	return &WatchlistRankingJob{
		ranker:   ranker,
		tickers:  tickers,
		schedule: schedule,
		logger:   log,
	}
}

// DefaultWatchlistSchedule is weekdays at 16:30
const DefaultWatchlistSchedule = "0 30 16 * * 1-5"

// Name returns the job name
func (j *WatchlistRankingJob) Name() string {
	return "watchlist_ranking"
}

// Schedule returns the cron schedule
func (j *WatchlistRankingJob) Schedule() string {
	return j.schedule
}

// Run executes the watchlist ranking
func (j *WatchlistRankingJob) Run(ctx context.Context) error {
	if len(j.tickers) == 0 {
		j.logger.Warn("Watchlist is empty, skipping ranking")
		return nil
	}

	j.logger.WithField("tickers", len(j.tickers)).Info("Starting scheduled watchlist ranking")

	result, err := j.ranker.WatchlistRanking(ctx, j.tickers)
	if err != nil {
		return fmt.Errorf("watchlist ranking failed: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"ranked": len(result.Ranked),
		"note":   result.NotePath,
	}).Info("Watchlist ranking completed")

	return nil
}
