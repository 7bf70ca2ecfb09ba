package jobs

import (
	"context"

	"github.com/wonny/factorlens/pkg/logger"
)

// KeywordResetter drops cached keyword weights so the next scoring run
// reloads them from disk
type KeywordResetter interface {
	Reset()
}

// KeywordRefreshJob reloads event keyword weights every night
type KeywordRefreshJob struct {
	keywords KeywordResetter
	logger   *logger.Logger
}

// NewKeywordRefreshJob creates a new keyword refresh job
func NewKeywordRefreshJob(keywords KeywordResetter, log *logger.Logger) *KeywordRefreshJob {
	return &KeywordRefreshJob{
		keywords: keywords,
		logger:   log,
	}
}

// Name returns the job name
func (j *KeywordRefreshJob) Name() string {
	return "keyword_refresh"
}

// Schedule returns the cron schedule (daily at 05:00)
func (j *KeywordRefreshJob) Schedule() string {
	return "0 0 5 * * *"
}

// Run executes the keyword refresh
func (j *KeywordRefreshJob) Run(ctx context.Context) error {
	j.keywords.Reset()
	j.logger.Debug("Keyword weights cache reset")
	return nil
}
