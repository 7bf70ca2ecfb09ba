package selection

import "github.com/wonny/factorlens/internal/signals"

// Part is one weighted input to Combine
type Part struct {
	Score  float64
	Weight float64
}

// Combine returns Σ(score·weight) / Σweight rounded to 4 decimals.
// A zero total weight divides by 1, returning the rounded numerator.
func Combine(parts ...Part) float64 {
	num := 0.0
	for _, p := range parts {
		num += float64(p.Score * p.Weight)
	}
	den := 0.0
	for _, p := range parts {
		den += p.Weight
	}
	if den == 0 {
		den = 1.0
	}
	return signals.Round(num/den, 4)
}
