package signals

import (
	"context"

	"github.com/wonny/factorlens/internal/contracts"
)

// Momentum windows in trading days
const (
	Mom1Days  = 21
	Mom3Days  = 63
	Mom6Days  = 126
	Mom12Days = 252
)

// MomentumFromCloses computes last/close[-n] - 1 for each window; a window
// longer than the history is absent.
func MomentumFromCloses(closes []float64) contracts.Momentum {
	ret := func(n int) *float64 {
		if len(closes) < n || n <= 0 {
			return nil
		}
		base := closes[len(closes)-n]
		v := closes[len(closes)-1]/base - 1.0
		return Finite(&v)
	}
	return contracts.Momentum{
		Mom1:  ret(Mom1Days),
		Mom3:  ret(Mom3Days),
		Mom6:  ret(Mom6Days),
		Mom12: ret(Mom12Days),
	}
}

// MomentumComposite is (mom3 + mom6 + mom12) / 3 with absent months as 0.
// A nil Momentum gives 0.
func MomentumComposite(m *contracts.Momentum) float64 {
	if m == nil {
		return 0
	}
	orZero := func(v *float64) float64 {
		if v = Finite(v); v == nil {
			return 0
		}
		return *v
	}
	return (orZero(m.Mom3) + orZero(m.Mom6) + orZero(m.Mom12)) / 3.0
}

// PriceMomentum derives Momentum from a price history provider
type PriceMomentum struct {
	Prices contracts.PriceHistoryProvider
}

// Momentum implements contracts.MomentumProvider
func (p PriceMomentum) Momentum(ctx context.Context, ticker string) (*contracts.Momentum, error) {
	history, err := p.Prices.PriceHistory(ctx, ticker)
	if err != nil {
		return nil, err
	}
	m := MomentumFromCloses(contracts.Closes(history))
	return &m, nil
}

// TrailingReturn is closes[-1]/closes[-1-period] - 1, nil when the history
// has period or fewer closes or the result is not finite.
func TrailingReturn(closes []float64, period int) *float64 {
	if period <= 0 {
		return nil
	}
	v := rateOfChange(closes, period)
	return Finite(&v)
}
