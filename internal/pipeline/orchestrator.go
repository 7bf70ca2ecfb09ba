package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/external/news"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/logger"
)

// ErrNoTickers is returned when a pipeline is started without tickers
var ErrNoTickers = errors.New("no tickers given")

// ErrInvalidTheme is returned for themes that cannot name a file or folder
var ErrInvalidTheme = errors.New("invalid theme")

// Ranker is the ranking engine as used by the pipelines
type Ranker interface {
	RankTickersWithFundamentals(ctx context.Context, tickers []string, opts selection.Options) ([]contracts.ScoreRecord, error)
	DefaultOptions() selection.Options
}

// NewsSearcher runs several news queries at once
type NewsSearcher interface {
	Search(ctx context.Context, queries []string, lookbackDays, maxResults int) []news.QueryHits
}

// SnapshotStore persists fundamentals rankings
type SnapshotStore interface {
	SaveFundamentals(ctx context.Context, params selection.SnapshotParams, records []contracts.ScoreRecord) (string, error)
}

// Deps bundles the collaborators of an Orchestrator. News, Filings and
// Snapshots may be nil.
type Deps struct {
	Ranker    Ranker
	News      NewsSearcher
	Filings   contracts.FilingsProvider
	Prices    contracts.PriceHistoryProvider
	Evaluator *portfolio.Evaluator
	Vault     *report.Vault
	Snapshots SnapshotStore

	ProfileHash   string
	ProcessedPath string
	Present       config.PresentConfig
	DipScreen     selection.DipScreenConfig
}

// Run describes one pipeline execution
type Run struct {
	RunID           string        `json:"run_id"`
	Date            string        `json:"date"`
	CompletedStages []string      `json:"completed_stages"`
	Duration        time.Duration `json:"duration"`
}

// Orchestrator runs the report pipelines
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	deps   Deps
	now    func() time.Time
	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(deps Deps, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		now:    time.Now,
		logger: log,
	}
}

// DipScreen returns the default dip screen configuration
func (o *Orchestrator) DipScreen() selection.DipScreenConfig {
	return o.deps.DipScreen
}

func (o *Orchestrator) startRun(name string) (*Run, time.Time) {
	start := o.now()
	run := &Run{
		RunID:           uuid.NewString(),
		Date:            start.Format("2006-01-02"),
		CompletedStages: make([]string, 0, 4),
	}
	o.logger.WithFields(map[string]interface{}{
		"run_id":   run.RunID,
		"pipeline": name,
	}).Info("Starting pipeline run")
	return run, start
}

func (o *Orchestrator) finishRun(name string, run *Run, start time.Time) {
	run.Duration = o.now().Sub(start)
	o.logger.WithFields(map[string]interface{}{
		"run_id":   run.RunID,
		"pipeline": name,
		"stages":   len(run.CompletedStages),
		"duration": run.Duration.Seconds(),
	}).Info("Pipeline run completed")
}

func (r *Run) stage(name string) {
	r.CompletedStages = append(r.CompletedStages, name)
}

// rank runs the engine with default options
func (o *Orchestrator) rank(ctx context.Context, tickers []string) ([]contracts.ScoreRecord, error) {
	ranked, err := o.deps.Ranker.RankTickersWithFundamentals(ctx, tickers, o.deps.Ranker.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("rank tickers: %w", err)
	}
	return ranked, nil
}

// closes returns the price history closes, or nil when unavailable
func (o *Orchestrator) closes(ctx context.Context, ticker string) []float64 {
	if o.deps.Prices == nil {
		return nil
	}
	history, err := o.deps.Prices.PriceHistory(ctx, ticker)
	if err != nil {
		o.logger.WithError(err).WithField("ticker", ticker).Warn("Data unavailable, using neutral value")
		return nil
	}
	return contracts.Closes(history)
}

// cleanTheme trims a theme and rejects values that would leave the
// output directories once used as a path element.
func cleanTheme(theme string) (string, error) {
	theme = strings.TrimSpace(theme)
	switch {
	case theme == "", theme == ".", theme == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	case strings.ContainsAny(theme, `/\`), strings.Contains(theme, ".."), strings.ContainsRune(theme, 0):
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return theme, nil
}

// within joins name onto root and fails when the result is not below root
func within(root string, elem ...string) (string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(append([]string{base}, elem...)...)
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrInvalidTheme, path, root)
	}
	return path, nil
}
