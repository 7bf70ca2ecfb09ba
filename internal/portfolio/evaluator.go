package portfolio

import (
	"context"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/pkg/logger"
)

// Phase is the momentum state of a holding
type Phase string

const (
	PhaseRising   Phase = "rising"   // 상승
	PhaseHolding  Phase = "holding"  // 유지
	PhaseUnstable Phase = "unstable" // 불안정
	PhaseRedFlag  Phase = "red-flag" // 적신호
)

// PhaseWindow is the return window in trading days
const PhaseWindow = 20

// Phase thresholds on the trailing 20-day return
const (
	risingAbove   = 0.10
	holdingAbove  = 0.02
	unstableAbove = -0.05
)

// Evaluation is the phase verdict for one holding
type Evaluation struct {
	Ticker string   `json:"ticker"`
	Phase  Phase    `json:"phase"`
	Ret20  *float64 `json:"ret20,omitempty"`
	Note   string   `json:"note,omitempty"`
}

// Evaluator assigns phases from price history
// ⭐ SSOT: 보유 종목 페이즈 판정은 여기서만
type Evaluator struct {
	prices contracts.PriceHistoryProvider
	logger *logger.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(prices contracts.PriceHistoryProvider, log *logger.Logger) *Evaluator {
	return &Evaluator{
		prices: prices,
		logger: log,
	}
}

// Evaluate returns one evaluation per ticker, in input order. Missing data
// never fails the batch; only context cancellation does.
func (e *Evaluator) Evaluate(ctx context.Context, tickers []string) ([]Evaluation, error) {
	out := make([]Evaluation, 0, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.evaluate(ctx, ticker))
	}

	e.logger.WithField("holdings", len(out)).Info("Portfolio evaluated")
	return out, nil
}

func (e *Evaluator) evaluate(ctx context.Context, ticker string) Evaluation {
	return phaseOf(ticker, e.history(ctx, ticker))
}

// history returns nil when prices are unavailable
func (e *Evaluator) history(ctx context.Context, ticker string) []contracts.PricePoint {
	history, err := e.prices.PriceHistory(ctx, ticker)
	if err != nil {
		e.logger.WithError(err).WithField("ticker", ticker).Warn("Data unavailable, using neutral value")
		return nil
	}
	return history
}

func phaseOf(ticker string, history []contracts.PricePoint) Evaluation {
	if len(history) == 0 {
		return Evaluation{Ticker: ticker, Phase: PhaseUnstable, Note: "no data"}
	}

	ret := signals.TrailingReturn(contracts.Closes(history), PhaseWindow)
	if ret == nil {
		return Evaluation{Ticker: ticker, Phase: PhaseUnstable, Note: "insufficient history"}
	}

	r := signals.Round(*ret, 4)
	return Evaluation{Ticker: ticker, Phase: PhaseFor(*ret), Ret20: &r}
}

// DetailedEvaluation is a phase verdict merged with the basic price
// metrics. Ret20 comes from the metrics and is not rounded.
type DetailedEvaluation struct {
	signals.BasicMetrics
	Phase Phase  `json:"phase"`
	Note  string `json:"note,omitempty"`
}

// EvaluateDetailed is Evaluate plus volatility, drawdown, momentum and the
// correlation with the benchmark. The benchmark history is fetched once;
// without it CorrSPY stays nil.
func (e *Evaluator) EvaluateDetailed(ctx context.Context, tickers []string) ([]DetailedEvaluation, error) {
	if len(tickers) == 0 {
		return []DetailedEvaluation{}, nil
	}
	benchmark := e.history(ctx, signals.BenchmarkTicker)

	out := make([]DetailedEvaluation, 0, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history := e.history(ctx, ticker)
		phase := phaseOf(ticker, history)
		out = append(out, DetailedEvaluation{
			BasicMetrics: signals.ComputeBasicMetrics(ticker, history, benchmark),
			Phase:        phase.Phase,
			Note:         phase.Note,
		})
	}

	e.logger.WithField("holdings", len(out)).Info("Portfolio evaluated with metrics")
	return out, nil
}

// PhaseFor maps a trailing return to its phase
func PhaseFor(ret20 float64) Phase {
	switch {
	case ret20 > risingAbove:
		return PhaseRising
	case ret20 > holdingAbove:
		return PhaseHolding
	case ret20 > unstableAbove:
		return PhaseUnstable
	default:
		return PhaseRedFlag
	}
}
