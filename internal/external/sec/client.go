package sec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

// ErrTickerNotFound is returned when a ticker has no CIK in company_tickers.json
var ErrTickerNotFound = errors.New("ticker not found in SEC ticker map")

// Client handles communication with SEC EDGAR
// ⭐ SSOT: SEC EDGAR 호출은 이 클라이언트에서만
type Client struct {
	httpClient     *httputil.Client
	tickers        *TickerCache
	cache          *redis.Cache
	logger         *logger.Logger
	tickersURL     string
	submissionsURL string
	archivesURL    string
}

// NewClient creates a new SEC EDGAR client. tickers may be shared between
// clients; a nil tickers gets a private cache. cache may be nil.
func NewClient(httpClient *httputil.Client, cfg config.SECConfig, tickers *TickerCache, cache *redis.Cache, log *logger.Logger) *Client {
	if tickers == nil {
		tickers = NewTickerCache()
	}
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "factorlens")
	}
	return &Client{
		httpClient:     httpClient,
		tickers:        tickers,
		cache:          cache,
		logger:         log,
		tickersURL:     cfg.TickersURL,
		submissionsURL: cfg.SubmissionsURL,
		archivesURL:    strings.TrimRight(cfg.ArchivesURL, "/"),
	}
}

// companyTicker is one row of company_tickers.json
type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// CIK resolves a ticker to its (unpadded) CIK string. The ticker map is
// downloaded on a cache miss; a ticker absent after a fresh download
// returns ErrTickerNotFound.
func (c *Client) CIK(ctx context.Context, ticker string) (string, error) {
	t := normalizeTicker(ticker)
	if t == "" {
		return "", ErrTickerNotFound
	}
	if cik, ok := c.tickers.Lookup(t); ok {
		return cik, nil
	}

	for {
		fresh, err := c.loadTickerMap(ctx)
		if err != nil {
			return "", err
		}
		if cik, ok := c.tickers.Lookup(t); ok {
			return cik, nil
		}
		if fresh {
			break
		}

		// cached map may predate the listing
		if err := c.cache.Delete(ctx, redis.TickerMapKey()); err != nil {
			c.logger.WithError(err).Warn("Failed to drop cached SEC ticker map")
			break
		}
	}
	return "", fmt.Errorf("%s: %w", t, ErrTickerNotFound)
}

// loadTickerMap fills the ticker cache, reporting whether the map was
// downloaded rather than read from Redis
func (c *Client) loadTickerMap(ctx context.Context) (bool, error) {
	fresh := false
	var rows map[string]companyTicker
	err := c.cache.GetOrSet(ctx, redis.TickerMapKey(), &rows, redis.TTLDaily, func() (interface{}, error) {
		fresh = true
		var m map[string]companyTicker
		if err := c.httpClient.GetJSON(ctx, c.tickersURL, &m); err != nil {
			return nil, fmt.Errorf("fetch company tickers: %w", err)
		}
		return m, nil
	})
	if err != nil {
		return fresh, err
	}

	entries := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Ticker == "" {
			continue
		}
		entries[strings.ToUpper(row.Ticker)] = fmt.Sprintf("%d", row.CIK)
	}
	c.tickers.StoreAll(entries)

	c.logger.WithFields(map[string]interface{}{
		"tickers": len(entries),
		"fresh":   fresh,
	}).Debug("Loaded SEC ticker map")

	return fresh, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
