package signals

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlens/internal/contracts"
)

// BenchmarkTicker is the market proxy for the correlation metric
const BenchmarkTicker = "SPY"

// Basic metric windows in trading days
const (
	Ret20Days           = 20
	Vol30Days           = 30
	Vol60Days           = 60
	MaxDrawdownLookback = 180
	CorrelationDays     = 90
)

// BasicMetrics are the price-derived risk and return figures of a ticker.
// Every figure is nil when the history is too short to compute it.
type BasicMetrics struct {
	Ticker  string     `json:"ticker"`
	Mom1    *float64   `json:"mom1"`
	Mom3    *float64   `json:"mom3"`
	Mom6    *float64   `json:"mom6"`
	Mom12   *float64   `json:"mom12"`
	Ret20   *float64   `json:"ret20"`
	Vol30   *float64   `json:"vol30"`
	Vol60   *float64   `json:"vol60"`
	DD180   *float64   `json:"dd180"`
	CorrSPY *float64   `json:"corr_spy"`
	AsOf    *time.Time `json:"asof,omitempty"`
}

// ComputeBasicMetrics derives BasicMetrics from a ticker history and the
// benchmark history. Momentum and ret20 are close[-1]/close[-1-n] - 1. A nil
// benchmark leaves CorrSPY nil.
func ComputeBasicMetrics(ticker string, history, benchmark []contracts.PricePoint) BasicMetrics {
	m := BasicMetrics{Ticker: ticker}
	if len(history) == 0 {
		return m
	}

	closes := contracts.Closes(history)
	m.Mom1 = TrailingReturn(closes, Mom1Days)
	m.Mom3 = TrailingReturn(closes, Mom3Days)
	m.Mom6 = TrailingReturn(closes, Mom6Days)
	m.Mom12 = TrailingReturn(closes, Mom12Days)
	m.Ret20 = TrailingReturn(closes, Ret20Days)
	m.Vol30 = Volatility(closes, Vol30Days)
	m.Vol60 = Volatility(closes, Vol60Days)
	m.DD180 = MaxDrawdown(closes, MaxDrawdownLookback)
	if len(benchmark) > 0 {
		m.CorrSPY = ReturnCorrelation(history, benchmark, CorrelationDays)
	}
	if last := history[len(history)-1].Date; !last.IsZero() {
		m.AsOf = &last
	}
	return m
}

// DailyReturns is close[i]/close[i-1] - 1 for i >= 1. A zero previous
// close yields a non-finite value.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = closes[i]/closes[i-1] - 1
	}
	return out
}

// Volatility is the sample standard deviation of the last window daily
// returns, nil when fewer returns exist or one of them is not finite.
func Volatility(closes []float64, window int) *float64 {
	returns := DailyReturns(closes)
	if window < 2 || len(returns) < window {
		return nil
	}
	tail := returns[len(returns)-window:]
	for _, r := range tail {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil
		}
	}
	v := stat.StdDev(tail, nil)
	return Finite(&v)
}

// MaxDrawdown is the deepest fall from a running peak over the last
// lookback closes, as a fraction <= 0. Nil for empty input or a
// non-positive peak.
func MaxDrawdown(closes []float64, lookback int) *float64 {
	if len(closes) == 0 || lookback <= 0 {
		return nil
	}
	window := closes[len(closes)-min(len(closes), lookback):]

	peak := math.Inf(-1)
	worst := 0.0
	for _, c := range window {
		peak = math.Max(peak, c)
		if !(peak > 0) {
			return nil
		}
		worst = math.Min(worst, (c-peak)/peak)
	}
	return Finite(&worst)
}

// ReturnCorrelation is the Pearson correlation of daily returns over the
// last window dates both series share. Returns are taken on each series
// before the dates are joined.
func ReturnCorrelation(a, b []contracts.PricePoint, window int) *float64 {
	const day = "2006-01-02"

	bReturns := make(map[string]float64, len(b))
	for i := 1; i < len(b); i++ {
		bReturns[b[i].Date.Format(day)] = b[i].Close/b[i-1].Close - 1
	}

	var xs, ys []float64
	for i := 1; i < len(a); i++ {
		x := a[i].Close/a[i-1].Close - 1
		y, ok := bReturns[a[i].Date.Format(day)]
		if !ok || Finite(&x) == nil || Finite(&y) == nil {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if window > 0 && len(xs) > window {
		xs, ys = xs[len(xs)-window:], ys[len(ys)-window:]
	}
	if len(xs) < 2 {
		return nil
	}
	v := stat.Correlation(xs, ys, nil)
	return Finite(&v)
}
