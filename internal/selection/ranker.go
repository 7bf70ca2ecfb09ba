package selection

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/metrics"
)

// DefaultDipWeight scales the dip estimate into the final score
const DefaultDipWeight = 0.12

// DefaultConcurrency bounds parallel per-ticker fetches
const DefaultConcurrency = 8

// Sub-factor weights of the fundamentals model
const (
	valuationPEWeight = 0.6
	valuationPBWeight = 0.4

	qualityProfitabilityWeight = 0.5
	qualityMomentumWeight      = 0.3
	qualityEventWeight         = 0.2
)

// Options controls one ranking call. Start from Engine.DefaultOptions and
// override fields as needed.
type Options struct {
	Weights       *contracts.WeightMap
	SectorWeights map[string]*contracts.WeightMap
	SectorNeutral bool
	DipWeight     float64
	UseDipBonus   bool
}

// Engine ranks tickers by the composite factor model
// ⭐ SSOT: 팩터 랭킹 로직은 여기서만
type Engine struct {
	fundamentals contracts.FundamentalsProvider
	momentum     contracts.MomentumProvider
	dip          *signals.DipCalculator
	events       *signals.EventCalculator
	defaults     Options
	concurrency  int
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// EngineDeps bundles the collaborators of an Engine
type EngineDeps struct {
	Fundamentals contracts.FundamentalsProvider
	Momentum     contracts.MomentumProvider
	Dip          *signals.DipCalculator
	Events       *signals.EventCalculator
	Metrics      *metrics.Metrics
}

// NewEngine creates a ranking engine. defaults.Weights nil means DefaultWeights.
func NewEngine(deps EngineDeps, defaults Options, log *logger.Logger) *Engine {
	if defaults.Weights == nil {
		defaults.Weights = DefaultWeights()
	}
	if defaults.SectorWeights == nil {
		defaults.SectorWeights = map[string]*contracts.WeightMap{}
	}
	return &Engine{
		fundamentals: deps.Fundamentals,
		momentum:     deps.Momentum,
		dip:          deps.Dip,
		events:       deps.Events,
		defaults:     defaults,
		concurrency:  DefaultConcurrency,
		metrics:      deps.Metrics,
		logger:       log,
	}
}

// WithConcurrency sets the fetch fan-out limit (minimum 1)
func (e *Engine) WithConcurrency(n int) *Engine {
	if n < 1 {
		n = 1
	}
	e.concurrency = n
	return e
}

// DefaultOptions returns a copy of the configured defaults
func (e *Engine) DefaultOptions() Options {
	opts := e.defaults
	opts.Weights = e.defaults.Weights.Clone()
	return opts
}

// effectiveWeights overlays caller weights on the defaults, key by key
func (e *Engine) effectiveWeights(opts Options) *contracts.WeightMap {
	if opts.Weights == nil {
		return e.defaults.Weights.Clone()
	}
	return e.defaults.Weights.Overlay(opts.Weights)
}

// RankCandidates scores caller-supplied factor records.
//
// base = Σ value·weight over the weight map (missing values are 0). With the
// dip bonus enabled, an explicit dip_score is clamped to [0,1]; otherwise a
// candidate with a ticker gets the price-history estimate. The output is
// stably sorted by score, descending. Only context cancellation is an error.
func (e *Engine) RankCandidates(ctx context.Context, candidates []contracts.Candidate, opts Options) ([]contracts.CandidateScore, error) {
	start := time.Now()
	weights := e.effectiveWeights(opts)

	raw := make([]float64, len(candidates))
	if opts.UseDipBonus {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for i := range candidates {
			c := candidates[i]
			if v, ok := c.DipScore(); ok {
				raw[i] = v
				continue
			}
			ticker := c.Ticker()
			if ticker == "" {
				continue
			}
			g.Go(func() error {
				raw[i] = e.estimateDip(gctx, ticker)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			e.metrics.ObserveRanking(metrics.ModeCandidates, 0, time.Since(start), err)
			return nil, err
		}
	}

	ranked := make([]contracts.CandidateScore, len(candidates))
	for i, c := range candidates {
		base := 0.0
		for _, w := range weights.Entries() {
			base += float64(c.Number(w.Key) * w.Weight)
		}

		dip := 0.0
		if opts.UseDipBonus {
			dip = opts.DipWeight * signals.Clamp(raw[i], 0, 1)
		}

		ranked[i] = contracts.CandidateScore{
			Candidate: c,
			DipBonus:  signals.Round(dip, 4),
			BaseScore: signals.Round(base, 4),
			Score:     signals.Round(base+dip, 4),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	e.metrics.ObserveRanking(metrics.ModeCandidates, len(ranked), time.Since(start), nil)
	e.logCompleted(metrics.ModeCandidates, len(ranked), func() (string, float64) {
		return ranked[0].Candidate.Ticker(), ranked[0].Score
	})

	return ranked, nil
}

// tickerInputs is everything fetched for one ticker
type tickerInputs struct {
	fund   contracts.Fundamentals
	mom    contracts.Momentum
	event  float64
	dipRaw float64
}

// RankTickersWithFundamentals derives the four factors from fundamentals,
// momentum and filing events, then ranks. Fetch failures degrade to absent
// metrics, a 0.5 event score and a 0 dip estimate. Only context
// cancellation is an error. An empty ticker list returns an empty slice.
func (e *Engine) RankTickersWithFundamentals(ctx context.Context, tickers []string, opts Options) ([]contracts.ScoreRecord, error) {
	start := time.Now()
	weights := e.effectiveWeights(opts)
	sectorWeights := opts.SectorWeights
	if sectorWeights == nil {
		sectorWeights = e.defaults.SectorWeights
	}

	inputs, err := e.fetchAll(ctx, tickers, opts.UseDipBonus)
	if err != nil {
		e.metrics.ObserveRanking(metrics.ModeFundamentals, 0, time.Since(start), err)
		return nil, err
	}

	n := len(tickers)
	pe, pb := make([]*float64, n), make([]*float64, n)
	eps, revG := make([]*float64, n), make([]*float64, n)
	pm, roe := make([]*float64, n), make([]*float64, n)
	momRaw, evRaw := make([]*float64, n), make([]*float64, n)
	sectors := make([]string, n)
	for i, in := range inputs {
		pe[i] = signals.Finite(in.fund.PE)
		pb[i] = signals.Finite(in.fund.PB)
		eps[i] = signals.Finite(in.fund.EPS)
		revG[i] = signals.Finite(in.fund.RevenueGrowth)
		pm[i] = signals.Finite(in.fund.ProfitMargins)
		roe[i] = signals.Finite(in.fund.ReturnOnEquity)
		sectors[i] = in.fund.Sector
		momRaw[i] = contracts.Float(signals.MomentumComposite(&inputs[i].mom))
		evRaw[i] = contracts.Float(in.event)
	}

	rank := func(values []*float64, higherIsBetter bool) []float64 {
		if opts.SectorNeutral {
			return RankNormalizeGrouped(values, sectors, higherIsBetter)
		}
		return RankNormalize(values, higherIsBetter)
	}

	valPE, valPB := rank(pe, false), rank(pb, false)
	growEPS, growRev := rank(eps, true), rank(revG, true)
	profPM, profROE := rank(pm, true), rank(roe, true)
	momScore := RankNormalize(momRaw, true)
	evScore := RankNormalize(evRaw, true)

	records := make([]contracts.ScoreRecord, n)
	for i, ticker := range tickers {
		valuation := Combine(Part{valPE[i], valuationPEWeight}, Part{valPB[i], valuationPBWeight})
		growth := Combine(Part{growEPS[i], 0.5}, Part{growRev[i], 0.5})
		profitability := Combine(Part{profPM[i], 0.5}, Part{profROE[i], 0.5})
		quality := Combine(
			Part{profitability, qualityProfitabilityWeight},
			Part{momScore[i], qualityMomentumWeight},
			Part{evScore[i], qualityEventWeight},
		)

		w := weightsForSector(weights, sectors[i], sectorWeights)
		base := float64(valuation*w.GetOr(contracts.FactorValuation, DefaultFactorWeight)) +
			float64(growth*w.GetOr(contracts.FactorGrowth, DefaultFactorWeight)) +
			float64(profitability*w.GetOr(contracts.FactorProfitability, DefaultFactorWeight)) +
			float64(quality*w.GetOr(contracts.FactorQuality, DefaultFactorWeight))

		dip := 0.0
		if opts.UseDipBonus {
			dip = opts.DipWeight * inputs[i].dipRaw
		}

		rec := contracts.ScoreRecord{
			Ticker:        ticker,
			Sector:        sectors[i],
			Valuation:     signals.Round(valuation, 4),
			Growth:        signals.Round(growth, 4),
			Profitability: signals.Round(profitability, 4),
			Quality:       signals.Round(quality, 4),
			DipBonus:      signals.Round(dip, 4),
			BaseScore:     signals.Round(base, 4),
			Evidence: contracts.Evidence{
				PE:             pe[i],
				PB:             pb[i],
				EPS:            eps[i],
				RevenueGrowth:  revG[i],
				ProfitMargins:  pm[i],
				ReturnOnEquity: roe[i],
				Mom1:           signals.Finite(inputs[i].mom.Mom1),
				Mom3:           signals.Finite(inputs[i].mom.Mom3),
				Mom6:           signals.Finite(inputs[i].mom.Mom6),
				Mom12:          signals.Finite(inputs[i].mom.Mom12),
				Mom:            momRaw[i],
				EventScore:     inputs[i].event,
			},
		}
		rec.Score = signals.Round(rec.BaseScore+rec.DipBonus, 4)
		records[i] = rec
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})

	e.metrics.ObserveRanking(metrics.ModeFundamentals, len(records), time.Since(start), nil)
	e.logCompleted(metrics.ModeFundamentals, len(records), func() (string, float64) {
		return records[0].Ticker, records[0].Score
	})

	return records, nil
}

// fetchAll gathers per-ticker inputs concurrently. Results are index
// aligned with tickers; ordering happens only after everything is collected.
func (e *Engine) fetchAll(ctx context.Context, tickers []string, withDip bool) ([]tickerInputs, error) {
	inputs := make([]tickerInputs, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			in := &inputs[i]
			in.fund = e.fetchFundamentals(gctx, ticker)
			in.mom = e.fetchMomentum(gctx, ticker)
			in.event = e.fetchEvent(gctx, ticker)
			if withDip {
				in.dipRaw = e.estimateDip(gctx, ticker)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (e *Engine) fetchFundamentals(ctx context.Context, ticker string) contracts.Fundamentals {
	f, err := e.fundamentals.Fundamentals(ctx, ticker)
	if err != nil || f == nil {
		e.fallback(metrics.SourceFundamentals, ticker, err)
		return contracts.Fundamentals{Ticker: ticker}
	}
	return *f
}

func (e *Engine) fetchMomentum(ctx context.Context, ticker string) contracts.Momentum {
	m, err := e.momentum.Momentum(ctx, ticker)
	if err != nil || m == nil {
		e.fallback(metrics.SourcePrices, ticker, err)
		return contracts.Momentum{}
	}
	return *m
}

func (e *Engine) fetchEvent(ctx context.Context, ticker string) float64 {
	score, err := e.events.Score(ctx, ticker)
	if err != nil {
		e.fallback(metrics.SourceFilings, ticker, err)
		return signals.NeutralEventScore
	}
	return score
}

func (e *Engine) estimateDip(ctx context.Context, ticker string) float64 {
	bonus, err := e.dip.Estimate(ctx, ticker)
	if err != nil {
		e.fallback(metrics.SourcePrices, ticker, err)
		return 0
	}
	return bonus
}

func (e *Engine) fallback(source, ticker string, err error) {
	e.metrics.IncFallback(source)
	e.logger.WithError(err).WithFields(map[string]interface{}{
		"ticker": ticker,
		"source": source,
	}).Warn("Data unavailable, using neutral value")
}

func (e *Engine) logCompleted(mode string, n int, top func() (string, float64)) {
	fields := map[string]interface{}{
		"mode":  mode,
		"total": n,
	}
	if n > 0 {
		fields["top_ticker"], fields["top_score"] = top()
	}
	e.logger.WithFields(fields).Info("Ranking completed")
}
