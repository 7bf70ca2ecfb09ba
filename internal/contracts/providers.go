package contracts

import "context"

// Collaborator interfaces consumed by the ranking engine.
// Implementations return ErrDataUnavailable (possibly wrapped) when they
// have nothing usable; callers decide the neutral fallback.

// FundamentalsProvider fetches a fundamentals snapshot
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}

// MomentumProvider fetches trailing returns
type MomentumProvider interface {
	Momentum(ctx context.Context, ticker string) (*Momentum, error)
}

// PriceHistoryProvider fetches about one year of daily closes, oldest first
type PriceHistoryProvider interface {
	PriceHistory(ctx context.Context, ticker string) ([]PricePoint, error)
}

// FilingsProvider fetches recent regulatory filings, newest first.
// A nil forms slice means the default 8-K/10-Q/10-K set.
type FilingsProvider interface {
	RecentFilings(ctx context.Context, ticker string, forms []string, limit int) ([]Filing, error)
}

// KeywordWeightsLoader loads the ordered filing-title keyword table
type KeywordWeightsLoader interface {
	LoadKeywordWeights() ([]KeywordWeight, error)
}

// NewsSearcher searches recent news
type NewsSearcher interface {
	SearchNews(ctx context.Context, query string, lookbackDays, maxResults int) ([]NewsHit, error)
}

// MarketData bundles the three market collaborators
type MarketData interface {
	FundamentalsProvider
	MomentumProvider
	PriceHistoryProvider
}
