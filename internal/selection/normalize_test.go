package selection

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
)

func vals(vs ...interface{}) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		switch x := v.(type) {
		case float64:
			out[i] = contracts.Float(x)
		case int:
			out[i] = contracts.Float(float64(x))
		}
	}
	return out
}

func TestRankNormalize(t *testing.T) {
	tests := []struct {
		name           string
		values         []*float64
		higherIsBetter bool
		want           []float64
	}{
		{"empty", nil, true, []float64{}},
		{"all absent", vals(nil, nil, nil), true, []float64{0.5, 0.5, 0.5}},
		{"singleton", vals(42), true, []float64{0.5}},
		{"singleton among absent", vals(nil, 7, nil), false, []float64{0.5, 0.5, 0.5}},
		{"higher is better", vals(1, 3, 2), true, []float64{0, 1, 0.5}},
		{"lower is better", vals(1, 3, 2), false, []float64{1, 0, 0.5}},
		{"absent stays neutral", vals(10, nil, 30), true, []float64{0, 0.5, 1}},
		{"ties keep input order", vals(5, 5, 5), true, []float64{1, 0.5, 0}},
		{"ties keep input order ascending", vals(5, 5, 1), false, []float64{0.5, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankNormalize(tt.values, tt.higherIsBetter)
			require.Len(t, got, len(tt.values))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "index %d", i)
			}
		})
	}
}

func TestRankNormalize_EvenlySpacedAndMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(20)
		perm := rng.Perm(n)
		values := make([]*float64, n)
		for i, p := range perm {
			values[i] = contracts.Float(float64(p) * 1.5)
		}

		for _, higher := range []bool{true, false} {
			got := RankNormalize(values, higher)

			sorted := append([]float64(nil), got...)
			sort.Float64s(sorted)
			for i, s := range sorted {
				assert.Equal(t, float64(i)/float64(n-1), s)
			}

			for i := range values {
				for j := range values {
					if *values[i] > *values[j] {
						if higher {
							assert.GreaterOrEqual(t, got[i], got[j])
						} else {
							assert.LessOrEqual(t, got[i], got[j])
						}
					}
				}
			}
		}
	}
}

func TestRankNormalizeGrouped(t *testing.T) {
	values := vals(10, 20, 5, 30, nil, 8)
	groups := []string{"Tech", "Tech", "Energy", "Energy", "Energy", ""}

	got := RankNormalizeGrouped(values, groups, false)

	assert.Equal(t, []float64{1, 0, 1, 0, 0.5, 0.5}, got)
}

func TestRankNormalizeGrouped_SingleGroupMatchesUngrouped(t *testing.T) {
	values := vals(3, nil, 9, 1, 9, 4)
	for _, label := range []string{"", "Tech"} {
		groups := make([]string, len(values))
		for i := range groups {
			groups[i] = label
		}
		for _, higher := range []bool{true, false} {
			assert.Equal(t, RankNormalize(values, higher), RankNormalizeGrouped(values, groups, higher))
		}
	}
}

func TestRankNormalizeGrouped_LengthMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		RankNormalizeGrouped(vals(1, 2), []string{"a"}, true)
	})
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name  string
		parts []Part
		want  float64
	}{
		{"empty", nil, 0},
		{"zero weight", []Part{{Score: 0.9, Weight: 0}}, 0},
		{"zero weight ignored beside others", []Part{{0.9, 0}, {0.4, 1}}, 0.4},
		{"weighted mean", []Part{{1, 0.6}, {0.5, 0.4}}, 0.8},
		{"unnormalized weights", []Part{{1, 3}, {0, 1}}, 0.75},
		{"rounded to 4 places", []Part{{1.0 / 3.0, 1}}, 0.3333},
		{"all neutral", []Part{{0.5, 0.5}, {0.5, 0.3}, {0.5, 0.2}}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.parts...))
		})
	}
}
