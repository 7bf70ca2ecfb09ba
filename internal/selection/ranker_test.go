package selection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/metrics"
)

var errFetch = errors.New("upstream down")

type fakeMarket struct {
	fundamentals map[string]*contracts.Fundamentals
	momentum     map[string]*contracts.Momentum
	prices       map[string][]float64
	failFund     bool
	failMom      bool
	failPrices   bool
}

func (f *fakeMarket) Fundamentals(_ context.Context, ticker string) (*contracts.Fundamentals, error) {
	if f.failFund {
		return nil, errFetch
	}
	if fd, ok := f.fundamentals[ticker]; ok {
		cp := *fd
		cp.Ticker = ticker
		return &cp, nil
	}
	return &contracts.Fundamentals{Ticker: ticker}, nil
}

func (f *fakeMarket) Momentum(_ context.Context, ticker string) (*contracts.Momentum, error) {
	if f.failMom {
		return nil, errFetch
	}
	if m, ok := f.momentum[ticker]; ok {
		return m, nil
	}
	return &contracts.Momentum{}, nil
}

func (f *fakeMarket) PriceHistory(_ context.Context, ticker string) ([]contracts.PricePoint, error) {
	if f.failPrices {
		return nil, errFetch
	}
	closes := f.prices[ticker]
	if len(closes) == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	out := make([]contracts.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = contracts.PricePoint{Close: c}
	}
	return out, nil
}

type stubFilings struct {
	titles map[string][]string
	fail   bool
}

func (s stubFilings) RecentFilings(_ context.Context, ticker string, _ []string, limit int) ([]contracts.Filing, error) {
	if s.fail {
		return nil, errFetch
	}
	var out []contracts.Filing
	for _, title := range s.titles[ticker] {
		if len(out) == limit {
			break
		}
		out = append(out, contracts.Filing{Ticker: ticker, Title: title})
	}
	return out, nil
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// 30% below the high with a flat 10-day return: raw dip estimate 0.75
var dipCloses = append([]float64{100}, flat(70, 11)...)

func newTestEngine(market *fakeMarket, filings stubFilings, m *metrics.Metrics) *Engine {
	log := logger.Nop()
	keywords := signals.NewKeywordCache(signals.StaticKeywordLoader(signals.DefaultKeywordWeights()), log)
	return NewEngine(EngineDeps{
		Fundamentals: market,
		Momentum:     market,
		Dip:          signals.NewDipCalculator(market, log),
		Events:       signals.NewEventCalculator(filings, keywords, 0, log),
		Metrics:      m,
	}, Options{DipWeight: DefaultDipWeight, UseDipBonus: true}, log)
}

func candidate(t *testing.T, raw string) contracts.Candidate {
	t.Helper()
	var c contracts.Candidate
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

func tickersOf(ranked []contracts.CandidateScore) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate.Ticker()
	}
	return out
}

func TestRankCandidates_EqualWeights(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	ranked, err := e.RankCandidates(context.Background(), []contracts.Candidate{
		candidate(t, `{"ticker":"B","growth":0,"profitability":0,"valuation":0,"quality":0}`),
		candidate(t, `{"ticker":"A","growth":1,"profitability":1,"valuation":1,"quality":1}`),
	}, opts)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"A", "B"}, tickersOf(ranked))
	assert.Equal(t, 1.0, ranked[0].BaseScore)
	assert.Equal(t, 1.0, ranked[0].Score)
	assert.Equal(t, 0.0, ranked[1].BaseScore)
	assert.Equal(t, 0.0, ranked[1].Score)
	assert.Equal(t, 0.0, ranked[0].DipBonus)
}

func TestRankCandidates_TiesKeepInputOrder(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	ranked, err := e.RankCandidates(context.Background(), []contracts.Candidate{
		candidate(t, `{"ticker":"C","growth":0.5}`),
		candidate(t, `{"ticker":"A","growth":0.2}`),
		candidate(t, `{"ticker":"D","growth":0.5}`),
		candidate(t, `{"ticker":"B","growth":0.5}`),
	}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "D", "B", "A"}, tickersOf(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankCandidates_DipBonus(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"LIVE": dipCloses}}
	e := newTestEngine(market, stubFilings{}, nil)

	ranked, err := e.RankCandidates(context.Background(), []contracts.Candidate{
		candidate(t, `{"ticker":"CAPPED","dip_score":2.5}`),
		candidate(t, `{"ticker":"NEG","dip_score":-1}`),
		candidate(t, `{"ticker":"LIVE","dip_score":null}`),
		candidate(t, `{"ticker":"NOHIST"}`),
		candidate(t, `{"dip_score":"0.5"}`),
		candidate(t, `{"growth":1}`),
	}, e.DefaultOptions())
	require.NoError(t, err)

	byName := make(map[string]contracts.CandidateScore)
	for _, r := range ranked {
		byName[r.Candidate.Ticker()] = r
	}

	assert.Equal(t, 0.12, byName["CAPPED"].DipBonus)
	assert.Equal(t, 0.0, byName["NEG"].DipBonus)
	assert.Equal(t, 0.09, byName["LIVE"].DipBonus)
	assert.Equal(t, 0.0, byName["NOHIST"].DipBonus)

	// growth=1 at weight 0.25, no ticker and no dip_score
	assert.Equal(t, 0.25, ranked[0].Score)
	assert.Equal(t, 0.0, ranked[0].DipBonus)
	assert.Equal(t, "CAPPED", ranked[1].Candidate.Ticker())
	assert.Equal(t, "LIVE", ranked[2].Candidate.Ticker())
	// string dip_score "0.5"
	assert.Equal(t, 0.06, ranked[3].Score)
}

func TestRankCandidates_WeightOverlay(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false
	opts.Weights = contracts.NewWeightMap(contracts.KeyWeight{Key: "growth", Weight: 1})

	ranked, err := e.RankCandidates(context.Background(), []contracts.Candidate{
		candidate(t, `{"ticker":"A","growth":0.5,"quality":1}`),
	}, opts)
	require.NoError(t, err)

	// growth=1 replaces the default; quality keeps 0.25
	assert.Equal(t, 0.75, ranked[0].BaseScore)
}

func TestRankCandidates_OutputEchoesFields(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	ranked, err := e.RankCandidates(context.Background(), []contracts.Candidate{
		candidate(t, `{"ticker":"A","note":"keep me","score":99,"growth":1}`),
	}, opts)
	require.NoError(t, err)

	out, err := json.Marshal(ranked[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticker":"A","note":"keep me","score":0.25,"growth":1,"dip_bonus":0,"base_score":0.25}`, string(out))
}

func TestRankCandidates_Empty(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)

	ranked, err := e.RankCandidates(context.Background(), nil, e.DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRankTickersWithFundamentals_Singleton(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]*contracts.Fundamentals{
			"X": {Sector: "Technology", PE: contracts.Float(25), PB: contracts.Float(4), EPS: contracts.Float(3.2)},
		},
		momentum: map[string]*contracts.Momentum{
			"X": {Mom3: contracts.Float(0.1), Mom6: contracts.Float(0.2)},
		},
	}
	e := newTestEngine(market, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	for _, w := range []*contracts.WeightMap{
		DefaultWeights(),
		contracts.NewWeightMap(
			contracts.KeyWeight{Key: "growth", Weight: 0.1},
			contracts.KeyWeight{Key: "profitability", Weight: 0.2},
			contracts.KeyWeight{Key: "valuation", Weight: 0.3},
			contracts.KeyWeight{Key: "quality", Weight: 0.4},
		),
	} {
		opts.Weights = w
		records, err := e.RankTickersWithFundamentals(context.Background(), []string{"X"}, opts)
		require.NoError(t, err)
		require.Len(t, records, 1)

		r := records[0]
		assert.Equal(t, "X", r.Ticker)
		assert.Equal(t, "Technology", r.Sector)
		assert.Equal(t, 0.5, r.Valuation)
		assert.Equal(t, 0.5, r.Growth)
		assert.Equal(t, 0.5, r.Profitability)
		assert.Equal(t, 0.5, r.Quality)
		assert.Equal(t, 0.5, r.BaseScore)
		assert.Equal(t, 0.5, r.Score)
		assert.Equal(t, 0.5, r.EventScore)

		require.NotNil(t, r.Mom)
		assert.InDelta(t, 0.1, *r.Mom, 1e-12)
		assert.Nil(t, r.Mom12)
		assert.Equal(t, 25.0, *r.PE)
	}
}

func TestRankTickersWithFundamentals_Ranks(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]*contracts.Fundamentals{
			"CHEAP": {PE: contracts.Float(8), PB: contracts.Float(1), EPS: contracts.Float(5), ProfitMargins: contracts.Float(0.3)},
			"MID":   {PE: contracts.Float(15), PB: contracts.Float(2), EPS: contracts.Float(3), ProfitMargins: contracts.Float(0.2)},
			"RICH":  {PE: contracts.Float(40), PB: contracts.Float(9), EPS: contracts.Float(1), ProfitMargins: contracts.Float(0.1)},
		},
	}
	e := newTestEngine(market, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	records, err := e.RankTickersWithFundamentals(context.Background(), []string{"RICH", "MID", "CHEAP"}, opts)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "CHEAP", records[0].Ticker)
	assert.Equal(t, "RICH", records[2].Ticker)

	cheap := records[0]
	assert.Equal(t, 1.0, cheap.Valuation)
	// eps rank 1, revenueGrowth absent 0.5
	assert.Equal(t, 0.75, cheap.Growth)
	assert.Equal(t, 0.75, cheap.Profitability)
	// tied momentum and event values still rank by input order, and CHEAP
	// came last: quality = 0.75*0.5 + 0*0.3 + 0*0.2
	assert.Equal(t, 0.375, cheap.Quality)
	assert.Equal(t, 0.7188, cheap.BaseScore)

	rich := records[2]
	assert.Equal(t, 0.625, rich.Quality)
	assert.Equal(t, 0.2812, rich.BaseScore)

	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i-1].Score, records[i].Score)
	}
}

func TestRankTickersWithFundamentals_SectorNeutral(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]*contracts.Fundamentals{
			"T1": {Sector: "Tech", PE: contracts.Float(10), EPS: contracts.Float(1), ProfitMargins: contracts.Float(1)},
			"T2": {Sector: "Tech", PE: contracts.Float(20), EPS: contracts.Float(2), ProfitMargins: contracts.Float(2)},
			"E1": {Sector: "Energy", PE: contracts.Float(5), EPS: contracts.Float(3), ProfitMargins: contracts.Float(3)},
			"E2": {Sector: "Energy", PE: contracts.Float(30), EPS: contracts.Float(4), ProfitMargins: contracts.Float(4)},
		},
	}
	e := newTestEngine(market, stubFilings{}, nil)
	tickers := []string{"T1", "T2", "E1", "E2"}

	find := func(records []contracts.ScoreRecord, ticker string) contracts.ScoreRecord {
		for _, r := range records {
			if r.Ticker == ticker {
				return r
			}
		}
		t.Fatalf("%s missing", ticker)
		return contracts.ScoreRecord{}
	}

	opts := e.DefaultOptions()
	opts.UseDipBonus = false

	global, err := e.RankTickersWithFundamentals(context.Background(), tickers, opts)
	require.NoError(t, err)
	assert.Equal(t, 0.6, find(global, "T1").Valuation)
	assert.Equal(t, 0.4167, find(global, "T2").Growth)
	assert.Equal(t, 0.4167, find(global, "T2").Profitability)

	// valuation, growth and profitability all rank within the sector
	opts.SectorNeutral = true
	neutral, err := e.RankTickersWithFundamentals(context.Background(), tickers, opts)
	require.NoError(t, err)
	assert.Equal(t, 0.8, find(neutral, "T1").Valuation)
	assert.Equal(t, 0.75, find(neutral, "T2").Growth)
	assert.Equal(t, 0.75, find(neutral, "T2").Profitability)
	assert.Equal(t, 0.25, find(neutral, "E1").Growth)
}

func TestRankTickersWithFundamentals_SectorWeights(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]*contracts.Fundamentals{
			"A": {Sector: "Tech", EPS: contracts.Float(2)},
			"B": {Sector: "Energy", EPS: contracts.Float(1)},
		},
	}
	e := newTestEngine(market, stubFilings{}, nil)
	opts := e.DefaultOptions()
	opts.UseDipBonus = false
	opts.SectorWeights = map[string]*contracts.WeightMap{
		"Tech": contracts.NewWeightMap(contracts.KeyWeight{Key: "growth", Weight: 1}),
	}

	records, err := e.RankTickersWithFundamentals(context.Background(), []string{"A", "B"}, opts)
	require.NoError(t, err)

	// A: growth 0.75 at weight 1, quality 0.75 (first in the momentum and
	// event ties), valuation and profitability 0.5
	assert.Equal(t, "A", records[0].Ticker)
	assert.Equal(t, 1.1875, records[0].BaseScore)
	// B: growth 0.25 and quality 0.25, all at the default weight
	assert.Equal(t, 0.375, records[1].BaseScore)
}

func TestRankTickersWithFundamentals_DipAndEvents(t *testing.T) {
	market := &fakeMarket{prices: map[string][]float64{"DIP": dipCloses}}
	filings := stubFilings{titles: map[string][]string{
		"DIP": {"Raised guidance for the year"},
	}}
	e := newTestEngine(market, filings, nil)

	records, err := e.RankTickersWithFundamentals(context.Background(), []string{"FLAT", "DIP"}, e.DefaultOptions())
	require.NoError(t, err)

	dip := records[0]
	assert.Equal(t, "DIP", dip.Ticker)
	assert.Equal(t, 0.09, dip.DipBonus)
	assert.Equal(t, 1.0, dip.EventScore)
	assert.Equal(t, 0.4875, dip.BaseScore)
	assert.Equal(t, 0.5775, dip.Score)
	assert.Equal(t, signals.Round(dip.BaseScore+dip.DipBonus, 4), dip.Score)

	flatRec := records[1]
	assert.Equal(t, 0.0, flatRec.DipBonus)
	assert.Equal(t, 0.5, flatRec.EventScore)
	assert.Equal(t, 0.5125, flatRec.Score)
}

func TestRankTickersWithFundamentals_DegradedSources(t *testing.T) {
	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	market := &fakeMarket{failFund: true, failMom: true, failPrices: true}
	e := newTestEngine(market, stubFilings{fail: true}, m)

	records, err := e.RankTickersWithFundamentals(context.Background(), []string{"A", "B"}, e.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"A", "B"}, []string{records[0].Ticker, records[1].Ticker})
	for _, r := range records {
		assert.Nil(t, r.PE)
		assert.Nil(t, r.Mom3)
		assert.Equal(t, 0.0, *r.Mom)
		assert.Equal(t, 0.5, r.EventScore)
		assert.Equal(t, 0.0, r.DipBonus)
		assert.Equal(t, 0.5, r.Valuation)
	}
	// neutral momentum and event values tie, so input order decides quality
	assert.Equal(t, 0.5625, records[0].Score)
	assert.Equal(t, 0.4375, records[1].Score)

	assert.Equal(t, 2.0, fallbackCount(t, reg, metrics.SourceFundamentals))
	assert.Equal(t, 2.0, fallbackCount(t, reg, metrics.SourceFilings))
	// momentum and dip both read prices
	assert.Equal(t, 4.0, fallbackCount(t, reg, metrics.SourcePrices))
}

func TestRankTickersWithFundamentals_Empty(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)

	records, err := e.RankTickersWithFundamentals(context.Background(), []string{}, e.DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRankTickersWithFundamentals_Cancelled(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RankTickersWithFundamentals(ctx, []string{"A"}, e.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankTickersWithFundamentals_ConcurrencyDoesNotChangeOrder(t *testing.T) {
	fund := make(map[string]*contracts.Fundamentals)
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for i, tk := range tickers {
		fund[tk] = &contracts.Fundamentals{PE: contracts.Float(float64(10 + i%3))}
	}
	market := &fakeMarket{fundamentals: fund}

	serial := newTestEngine(market, stubFilings{}, nil).WithConcurrency(1)
	parallel := newTestEngine(market, stubFilings{}, nil).WithConcurrency(8)

	a, err := serial.RankTickersWithFundamentals(context.Background(), tickers, serial.DefaultOptions())
	require.NoError(t, err)
	b, err := parallel.RankTickersWithFundamentals(context.Background(), tickers, parallel.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func fallbackCount(t *testing.T, reg *prometheus.Registry, source string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != metrics.MetricFallbacksTotal {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "source" && lp.GetValue() == source {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
