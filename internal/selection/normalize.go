package selection

import (
	"fmt"
	"sort"
)

// NeutralRank is the score given to absent values and singleton groups
const NeutralRank = 0.5

// RankNormalize converts optional values into 0..1 rank scores, 1 = best.
//
// Present values are stably sorted on value alone (descending when
// higherIsBetter), so equal values keep their input order, and position p
// of n scores (n-1-p)/(n-1). A lone present value scores 0.5. Absent (nil)
// positions score 0.5. The output is aligned with the input.
func RankNormalize(values []*float64, higherIsBetter bool) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = NeutralRank
	}

	idx := make([]int, 0, len(values))
	for i, v := range values {
		if v != nil {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := *values[idx[a]], *values[idx[b]]
		if higherIsBetter {
			return va > vb
		}
		return va < vb
	})

	n := len(idx)
	for pos, i := range idx {
		if n > 1 {
			out[i] = float64(n-pos-1) / float64(n-1)
		} else {
			out[i] = NeutralRank
		}
	}
	return out
}

// RankNormalizeGrouped applies RankNormalize independently within each
// group and writes the results back in input order. The empty group label
// ("no sector") is a group of its own. values and groups must have equal
// length; a mismatch is a programming error and panics.
func RankNormalizeGrouped(values []*float64, groups []string, higherIsBetter bool) []float64 {
	if len(values) != len(groups) {
		panic(fmt.Sprintf("selection: %d values but %d groups", len(values), len(groups)))
	}

	members := make(map[string][]int)
	var order []string
	for i, g := range groups {
		if _, ok := members[g]; !ok {
			order = append(order, g)
		}
		members[g] = append(members[g], i)
	}

	out := make([]float64, len(values))
	for _, g := range order {
		idxs := members[g]
		sub := make([]*float64, len(idxs))
		for j, i := range idxs {
			sub[j] = values[i]
		}
		for j, score := range RankNormalize(sub, higherIsBetter) {
			out[idxs[j]] = score
		}
	}
	return out
}
