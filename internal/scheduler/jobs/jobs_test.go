package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/pkg/logger"
)

type fakeRanker struct {
	got []string
	err error
}

func (f *fakeRanker) WatchlistRanking(ctx context.Context, tickers []string) (*pipeline.WatchlistResult, error) {
	f.got = tickers
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.WatchlistResult{
		Run:      pipeline.Run{RunID: "run-1"},
		NotePath: "Watchlist/Ranking 2024-06-10.md",
	}, nil
}

func TestWatchlistRankingJob(t *testing.T) {
	ranker := &fakeRanker{}
	job := NewWatchlistRankingJob(ranker, []string{"AAPL", "MSFT"}, "", logger.Nop())

	assert.Equal(t, "watchlist_ranking", job.Name())
	assert.Equal(t, DefaultWatchlistSchedule, job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"AAPL", "MSFT"}, ranker.got)
}

func TestWatchlistRankingJob_Empty(t *testing.T) {
	ranker := &fakeRanker{}
	job := NewWatchlistRankingJob(ranker, nil, "@hourly", logger.Nop())

	assert.Equal(t, "@hourly", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, ranker.got)
}

func TestWatchlistRankingJob_Error(t *testing.T) {
	ranker := &fakeRanker{err: errors.New("upstream")}
	job := NewWatchlistRankingJob(ranker, []string{"AAPL"}, "", logger.Nop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream")
}

type fakeKeywords struct{ resets int }

func (f *fakeKeywords) Reset() { f.resets++ }

func TestKeywordRefreshJob(t *testing.T) {
	kw := &fakeKeywords{}
	job := NewKeywordRefreshJob(kw, logger.Nop())

	assert.Equal(t, "keyword_refresh", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, kw.resets)
}
