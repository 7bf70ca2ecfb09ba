package signals

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

// NeutralEventScore is returned when no filing signal exists
const NeutralEventScore = 0.5

// DefaultFilingsLimit is the number of recent filings scored
const DefaultFilingsLimit = 10

// EventCalculator scores recent filing titles against the keyword table
// ⭐ SSOT: 이벤트 점수 계산은 여기서만
type EventCalculator struct {
	filings  contracts.FilingsProvider
	keywords *KeywordCache
	limit    int
	logger   *logger.Logger
}

// NewEventCalculator creates a new event calculator
func NewEventCalculator(filings contracts.FilingsProvider, keywords *KeywordCache, limit int, log *logger.Logger) *EventCalculator {
	if limit <= 0 {
		limit = DefaultFilingsLimit
	}
	return &EventCalculator{
		filings:  filings,
		keywords: keywords,
		limit:    limit,
		logger:   log,
	}
}

// Score returns the event score for ticker using the configured limit
func (c *EventCalculator) Score(ctx context.Context, ticker string) (float64, error) {
	return c.ScoreWithLimit(ctx, ticker, c.limit)
}

// ScoreWithLimit returns the event score in [0,1], 0.5 when there are no
// filings. A fetch failure returns 0.5 together with the error.
func (c *EventCalculator) ScoreWithLimit(ctx context.Context, ticker string, limit int) (float64, error) {
	filings, err := c.filings.RecentFilings(ctx, ticker, nil, limit)
	if err != nil {
		return NeutralEventScore, fmt.Errorf("filings for %s: %w", ticker, err)
	}

	titles := make([]string, len(filings))
	for i, f := range filings {
		titles[i] = f.Title
	}
	score := EventScore(titles, c.keywords.Weights())

	c.logger.WithFields(map[string]interface{}{
		"ticker":  ticker,
		"filings": len(filings),
		"score":   score,
	}).Debug("Calculated event score")

	return score, nil
}

// EventScore maps the average keyword weight per title from [-1,1] onto
// [0,1], rounded to 3 decimals. Every keyword contained in a lower-cased
// title contributes; no titles gives 0.5.
func EventScore(titles []string, weights []contracts.KeywordWeight) float64 {
	if len(titles) == 0 {
		return NeutralEventScore
	}

	total := 0.0
	for _, title := range titles {
		lower := strings.ToLower(title)
		for _, kw := range weights {
			if strings.Contains(lower, kw.Keyword) {
				total += kw.Weight
			}
		}
	}

	raw := total / float64(len(titles))
	return Round(Clamp((raw+1.0)/2.0, 0, 1), 3)
}
