package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDipBonus(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{
			name:   "30% drawdown, flat 10-day return",
			closes: append([]float64{100}, repeat(70, 11)...),
			want:   0.75,
		},
		{
			name:   "no drawdown ignores momentum",
			closes: []float64{50, 60, 70, 80, 90, 100, 110, 120, 130, 140, 150, 160},
			want:   0,
		},
		{
			name:   "short history has no rebound credit",
			closes: []float64{100, 85},
			want:   0.25,
		},
		{
			name:   "deep drawdown with strong rebound is capped at 1",
			closes: append(append([]float64{100}, repeat(60, 10)...), 66),
			want:   1.0,
		},
		{
			name:   "high outside 180-day window is ignored",
			closes: append([]float64{200}, repeat(100, 180)...),
			want:   0,
		},
		{
			name:   "empty",
			closes: nil,
			want:   0,
		},
		{
			name:   "non-positive high",
			closes: []float64{0, 0, 0},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DipBonus(tt.closes))
		})
	}
}

func TestDipBonusBounded(t *testing.T) {
	closes := []float64{10, 40, 5, 80, 3, 90, 1, 2, 50, 7, 100, 4, 9}
	for i := 1; i <= len(closes); i++ {
		b := DipBonus(closes[:i])
		assert.GreaterOrEqual(t, b, 0.0)
		assert.LessOrEqual(t, b, 1.0)
	}
}

func TestDrawdown(t *testing.T) {
	dd := Drawdown([]float64{100, 120, 90}, 180)
	if assert.NotNil(t, dd) {
		assert.InDelta(t, 0.25, *dd, 1e-12)
	}

	assert.Nil(t, Drawdown(nil, 180))
	assert.Nil(t, Drawdown([]float64{0, 0}, 180))
	assert.Nil(t, Drawdown([]float64{100, 120, 0}, 180), "zero last close")

	// lookback limits the window
	dd = Drawdown([]float64{200, 100, 100}, 2)
	if assert.NotNil(t, dd) {
		assert.Equal(t, 0.0, *dd)
	}
}

type fakePrices struct {
	closes map[string][]float64
	err    error
}

func (f fakePrices) PriceHistory(_ context.Context, ticker string) ([]contracts.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	closes, ok := f.closes[ticker]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = contracts.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out, nil
}

func TestDipCalculator_Estimate(t *testing.T) {
	calc := NewDipCalculator(fakePrices{closes: map[string][]float64{
		"DIP": append([]float64{100}, repeat(70, 11)...),
	}}, logger.Nop())

	bonus, err := calc.Estimate(context.Background(), "DIP")
	assert.NoError(t, err)
	assert.Equal(t, 0.75, bonus)

	bonus, err = calc.Estimate(context.Background(), "MISSING")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	assert.Equal(t, 0.0, bonus)

	failing := NewDipCalculator(fakePrices{err: errors.New("boom")}, logger.Nop())
	bonus, err = failing.Estimate(context.Background(), "DIP")
	assert.Error(t, err)
	assert.Equal(t, 0.0, bonus)
}

func TestRound(t *testing.T) {
	tests := []struct {
		in     float64
		places int
		want   float64
	}{
		{0.12344, 4, 0.1234},
		{0.12346, 4, 0.1235},
		// ties to even
		{0.5, 0, 0},
		{1.5, 0, 2},
		// 2.675 is stored just below the tie
		{2.675, 2, 2.67},
		{0.55, 3, 0.55},
		{-0.00004, 4, -0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in, tt.places), "Round(%v, %d)", tt.in, tt.places)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.4, Clamp(0.4, 0, 1))
}
