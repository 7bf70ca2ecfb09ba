package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/external/news"
	"github.com/wonny/factorlens/internal/external/sec"
	"github.com/wonny/factorlens/internal/external/yahoo"
	"github.com/wonny/factorlens/internal/marketdata"
	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/internal/strategyconfig"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/database"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/metrics"
	"github.com/wonny/factorlens/pkg/redis"
)

// cachePrefix namespaces cache and rate limit keys in Redis
const cachePrefix = "factorlens"

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	redis    *redis.Client
	db       *database.DB
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	sec          *sec.Client
	news         *news.Client
	market       *marketdata.Provider
	keywords     *signals.KeywordCache
	events       *signals.EventCalculator
	engine       *selection.Engine
	repo         *selection.Repository
	evaluator    *portfolio.Evaluator
	orchestrator *pipeline.Orchestrator

	profileHash string
}

// bootstrap loads configuration and wires every component
// ⭐ SSOT: 의존성 조립은 여기서만
func bootstrap(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if profilePath != "" {
		cfg.Scoring.ProfilePath = profilePath
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 3. Redis (optional)
	a.redis, err = redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}
	cache := redis.NewCache(a.redis, cachePrefix)

	// 4. Metrics
	a.registry = prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		a.metrics = metrics.NewMetrics()
		if err := a.metrics.Register(a.registry); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	// 5. Scoring profile (optional)
	var profile *strategyconfig.Config
	if cfg.Scoring.ProfilePath != "" {
		profile, _, err = strategyconfig.Load(cfg.Scoring.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("load scoring profile: %w", err)
		}
		if a.profileHash, err = strategyconfig.Hash(profile); err != nil {
			return nil, fmt.Errorf("hash scoring profile: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"profile": profile.Meta.ProfileID,
			"hash":    a.profileHash,
		}).Debug("Scoring profile loaded")
		for _, w := range strategyconfig.Warn(profile) {
			log.WithField("code", w.Code).Warn(w.Message)
		}
	}

	// 6. External API clients
	secHTTP := httputil.New(cfg, log).
		WithHeader("User-Agent", cfg.SEC.UserAgent).
		WithLocalRateLimit(cfg.SEC.RateLimit)
	if a.redis.Enabled() {
		secHTTP.WithRateLimiter(redis.NewRateLimiter(a.redis, cachePrefix), redis.RateLimitConfig{
			Key:    "sec",
			Limit:  cfg.SEC.RateLimit,
			Window: time.Second,
		})
	}
	a.sec = sec.NewClient(secHTTP, cfg.SEC, sec.NewTickerCache(), cache, log)

	yahooClient := yahoo.NewClient(httputil.New(cfg, log), cfg.Yahoo, log)
	a.market = marketdata.NewProvider(yahooClient, cache, log)

	a.news = news.NewClient(httputil.New(cfg, log), cfg.News, log)

	// 7. Signals
	a.keywords = signals.NewKeywordCache(keywordLoader(cfg, profile), log)
	filingsLimit := cfg.Scoring.EventFilingsLimit
	if profile != nil && profile.Events.FilingsLimit > 0 {
		filingsLimit = profile.Events.FilingsLimit
	}
	a.events = signals.NewEventCalculator(a.sec, a.keywords, filingsLimit, log)
	dip := signals.NewDipCalculator(a.market, log)

	// 8. Ranking engine
	a.engine = selection.NewEngine(selection.EngineDeps{
		Fundamentals: a.market,
		Momentum:     a.market,
		Dip:          dip,
		Events:       a.events,
		Metrics:      a.metrics,
	}, defaultOptions(cfg, profile, log), log)

	// 9. Snapshot store (optional)
	var snapshots pipeline.SnapshotStore
	a.db, err = database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Debug("DATABASE_URL not set, ranking snapshots disabled")
	case err != nil:
		log.WithError(err).Warn("Database unavailable, ranking snapshots disabled")
	default:
		a.repo = selection.NewRepository(a.db.Pool)
		snapshots = a.repo
	}

	// 10. Pipelines
	screen := selection.DefaultDipScreenConfig()
	if profile != nil {
		screen = profile.ApplyScreen(screen)
	}
	a.evaluator = portfolio.NewEvaluator(a.market, log)
	a.orchestrator = pipeline.NewOrchestrator(pipeline.Deps{
		Ranker:        a.engine,
		News:          a.news,
		Filings:       a.sec,
		Prices:        a.market,
		Evaluator:     a.evaluator,
		Vault:         report.NewVault(cfg.Notes.VaultPath, log),
		Snapshots:     snapshots,
		ProfileHash:   a.profileHash,
		ProcessedPath: cfg.Notes.ProcessedPath,
		Present:       cfg.Present,
		DipScreen:     screen,
	}, log)

	return a, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
}

// defaultOptions builds engine defaults from the environment, then the profile
func defaultOptions(cfg *config.Config, profile *strategyconfig.Config, log *logger.Logger) selection.Options {
	opts := selection.Options{
		SectorNeutral: cfg.Scoring.SectorNeutral,
		DipWeight:     cfg.Scoring.DipWeight,
		UseDipBonus:   cfg.Scoring.UseDipBonus,
	}

	// malformed values never fail startup; the parsers return usable maps
	weights, err := selection.ParseWeights(cfg.Scoring.Weights)
	if err != nil {
		log.WithError(err).Warn("Invalid SCORE_WEIGHTS, keeping weights parsed so far")
	}
	opts.Weights = weights

	sectorWeights, err := selection.ParseSectorWeights(cfg.Scoring.SectorFactorWeights)
	if err != nil {
		log.WithError(err).Warn("Invalid SECTOR_FACTOR_WEIGHTS, ignoring sector overrides")
	}
	opts.SectorWeights = sectorWeights

	if profile != nil {
		opts = profile.ApplyOptions(opts)
	}
	return opts
}

// keywordLoader prefers the profile keyword table over EVENT_WEIGHTS_PATH
func keywordLoader(cfg *config.Config, profile *strategyconfig.Config) contracts.KeywordWeightsLoader {
	if profile != nil {
		if kw := profile.KeywordWeights(); kw != nil {
			return signals.StaticKeywordLoader(kw)
		}
	}
	return signals.FileKeywordLoader{Path: cfg.Scoring.EventWeightsPath}
}
