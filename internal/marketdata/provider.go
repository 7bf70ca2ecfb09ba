package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

// HistoryRange is the price window fetched for momentum and dip signals
const HistoryRange = "1y"

// Source is the upstream market data API
type Source interface {
	FetchPrices(ctx context.Context, ticker, rangeSpec string) ([]contracts.PricePoint, error)
	FetchFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error)
}

// Provider serves fundamentals, momentum and price history with caching
// ⭐ SSOT: 엔진이 쓰는 시장 데이터는 이 Provider를 통해서만
type Provider struct {
	source Source
	cache  *redis.Cache
	logger *logger.Logger
}

// NewProvider creates a provider. A nil cache disables caching.
func NewProvider(source Source, cache *redis.Cache, log *logger.Logger) *Provider {
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "factorlens")
	}
	return &Provider{
		source: source,
		cache:  cache,
		logger: log,
	}
}

// Fundamentals implements contracts.FundamentalsProvider
func (p *Provider) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	ticker = normalize(ticker)
	if ticker == "" {
		return nil, contracts.ErrDataUnavailable
	}

	var out contracts.Fundamentals
	err := p.cache.GetOrSet(ctx, redis.FundamentalsKey(ticker), &out, redis.TTLDaily, func() (interface{}, error) {
		return p.source.FetchFundamentals(ctx, ticker)
	})
	if err != nil {
		return nil, fmt.Errorf("fundamentals for %s: %w", ticker, err)
	}
	return &out, nil
}

// PriceHistory implements contracts.PriceHistoryProvider
func (p *Provider) PriceHistory(ctx context.Context, ticker string) ([]contracts.PricePoint, error) {
	ticker = normalize(ticker)
	if ticker == "" {
		return nil, contracts.ErrDataUnavailable
	}

	var out []contracts.PricePoint
	err := p.cache.GetOrSet(ctx, redis.PriceHistoryKey(ticker, HistoryRange), &out, redis.TTLMedium, func() (interface{}, error) {
		return p.source.FetchPrices(ctx, ticker, HistoryRange)
	})
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", ticker, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("price history for %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return out, nil
}

// Momentum implements contracts.MomentumProvider
func (p *Provider) Momentum(ctx context.Context, ticker string) (*contracts.Momentum, error) {
	history, err := p.PriceHistory(ctx, ticker)
	if err != nil {
		return nil, err
	}
	m := signals.MomentumFromCloses(contracts.Closes(history))
	return &m, nil
}

// Closes returns the close series, oldest first
func (p *Provider) Closes(ctx context.Context, ticker string) ([]float64, error) {
	history, err := p.PriceHistory(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return contracts.Closes(history), nil
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

var _ contracts.MarketData = (*Provider)(nil)
