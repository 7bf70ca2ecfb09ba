package selection

import (
	"context"
	"encoding/json"

	"github.com/wonny/factorlens/internal/contracts"
)

// AutoResult is the outcome of RankAuto. Hydrated tells which of
// Candidates or Records holds the ranking.
type AutoResult struct {
	Hydrated   bool
	Candidates []contracts.CandidateScore
	Records    []contracts.ScoreRecord
}

// MarshalJSON writes the ranking as a bare array of whichever shape ran
func (r AutoResult) MarshalJSON() ([]byte, error) {
	if r.Hydrated {
		return json.Marshal(r.Records)
	}
	if r.Candidates == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Candidates)
}

// NeedsHydration reports whether any candidate lacks one of the canonical
// factor keys. A present key with a null value counts as supplied.
func NeedsHydration(candidates []contracts.Candidate) bool {
	for _, c := range candidates {
		for _, f := range contracts.CanonicalFactors {
			if !c.Has(f) {
				return true
			}
		}
	}
	return false
}

// hydrationTickers returns the non-empty tickers in input order
func hydrationTickers(candidates []contracts.Candidate) []string {
	var tickers []string
	for _, c := range candidates {
		if t := c.Ticker(); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

// RankAuto ranks caller records, switching to fundamentals ranking when
// autoHydrate is set, some candidate misses a factor key and at least one
// candidate carries a ticker. Otherwise it is RankCandidates.
// ⭐ SSOT: auto_hydrate 분기는 여기서만
func (e *Engine) RankAuto(ctx context.Context, candidates []contracts.Candidate, autoHydrate bool, opts Options) (*AutoResult, error) {
	if autoHydrate && NeedsHydration(candidates) {
		if tickers := hydrationTickers(candidates); len(tickers) > 0 {
			e.logger.WithField("tickers", len(tickers)).Debug("Candidates missing factors, hydrating from fundamentals")
			records, err := e.RankTickersWithFundamentals(ctx, tickers, opts)
			if err != nil {
				return nil, err
			}
			return &AutoResult{Hydrated: true, Records: records}, nil
		}
	}

	ranked, err := e.RankCandidates(ctx, candidates, opts)
	if err != nil {
		return nil, err
	}
	return &AutoResult{Candidates: ranked}, nil
}
