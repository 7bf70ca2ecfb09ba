package signals

import (
	"context"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

// DipLookback is the trailing window used for the recent high
const DipLookback = 180

const (
	dipFullDrawdown  = 0.30 // drawdown earning full credit
	dipReboundPeriod = 10
)

// DipCalculator estimates the pre-weight dip bonus from price history
// ⭐ SSOT: 딥 보너스 계산은 여기서만
type DipCalculator struct {
	prices contracts.PriceHistoryProvider
	logger *logger.Logger
}

// NewDipCalculator creates a new dip calculator
func NewDipCalculator(prices contracts.PriceHistoryProvider, log *logger.Logger) *DipCalculator {
	return &DipCalculator{
		prices: prices,
		logger: log,
	}
}

// Estimate returns the dip bonus in [0,1] for ticker. An empty history
// scores 0; a fetch failure returns 0 with the error so the caller can
// record the fallback.
func (c *DipCalculator) Estimate(ctx context.Context, ticker string) (float64, error) {
	history, err := c.prices.PriceHistory(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("price history for %s: %w", ticker, err)
	}

	bonus := DipBonus(contracts.Closes(history))

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"points": len(history),
		"bonus":  bonus,
	}).Debug("Calculated dip bonus")

	return bonus, nil
}

// DipBonus scores a pullback that has started to rebound:
//
//	dd    = max(0, (high180 - last) / high180), full credit at 30%
//	mom   = clamp((ret10 + 0.05) / 0.10, 0, 1)
//	bonus = 0.5*dd + 0.5*dd*mom
//
// ret10 is the 10-period rate of change; with 10 or fewer closes it is
// undefined and mom is 0. The result is rounded to 4 decimals.
func DipBonus(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}

	window := closes[len(closes)-min(len(closes), DipLookback):]
	recentHigh := floats.Max(window)
	last := closes[len(closes)-1]
	if !(recentHigh > 0) {
		return 0
	}

	drawdown := math.Max(0, (recentHigh-last)/recentHigh)
	ddScore := math.Min(drawdown/dipFullDrawdown, 1.0)
	momScore := Clamp((rateOfChange(closes, dipReboundPeriod)+0.05)/0.10, 0, 1)

	// conversions keep each product rounded (no fused multiply-add)
	bonus := float64(0.5*ddScore) + float64(0.5*float64(ddScore*momScore))
	return Round(bonus, 4)
}

// rateOfChange returns closes[-1]/closes[-1-period] - 1, NaN when undefined
func rateOfChange(closes []float64, period int) float64 {
	if len(closes) <= period {
		return math.NaN()
	}
	if prior := closes[len(closes)-1-period]; prior == 0 {
		// talib yields 0 here; keep the IEEE result (+Inf or NaN) instead
		return closes[len(closes)-1]/prior - 1
	}
	rocr := talib.Rocr(closes, period)
	return rocr[len(rocr)-1] - 1
}

// Drawdown returns the fractional decline of the last close from the max
// close of the trailing lookback window, or nil when it cannot be computed.
// A zero last close means a missing quote, not a total loss.
func Drawdown(closes []float64, lookback int) *float64 {
	if len(closes) == 0 || lookback <= 0 {
		return nil
	}
	window := closes[len(closes)-min(len(closes), lookback):]
	high := floats.Max(window)
	last := closes[len(closes)-1]
	if !(high > 0) || last == 0 {
		return nil
	}
	dd := (high - last) / high
	return &dd
}
