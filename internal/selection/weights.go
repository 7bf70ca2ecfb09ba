package selection

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wonny/factorlens/internal/contracts"
)

// DefaultFactorWeight is used for a canonical factor missing from a weight map
const DefaultFactorWeight = 0.25

// DefaultWeights returns the equal 0.25 weighting in canonical order
func DefaultWeights() *contracts.WeightMap {
	w := &contracts.WeightMap{}
	for _, f := range contracts.CanonicalFactors {
		w.Set(f, DefaultFactorWeight)
	}
	return w
}

// ParseWeights parses "growth=0.3,quality=0.2" on top of DefaultWeights.
// Parts without '=' are ignored. Parsing stops at the first unparsable
// weight; entries applied before it are kept and the error is returned
// alongside the still-usable map.
func ParseWeights(s string) (*contracts.WeightMap, error) {
	w := DefaultWeights()
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return w, fmt.Errorf("weight %q: %w", strings.TrimSpace(k), err)
		}
		w.Set(strings.TrimSpace(k), f)
	}
	return w, nil
}

// ParseSectorWeights parses a JSON object of sector → {factor: weight}.
// Empty input yields an empty map. Sectors whose value is not an object
// and non-numeric weights are skipped; malformed JSON yields an empty map
// and an error.
func ParseSectorWeights(s string) (map[string]*contracts.WeightMap, error) {
	out := make(map[string]*contracts.WeightMap)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	err := contracts.DecodeOrderedObject([]byte(s), func(sector string, raw json.RawMessage) error {
		w := &contracts.WeightMap{}
		err := contracts.DecodeOrderedObject(raw, func(factor string, v json.RawMessage) error {
			if f, ok := contracts.NumberFromJSON(v); ok {
				w.Set(factor, f)
			}
			return nil
		})
		if err == nil {
			out[sector] = w
		}
		return nil
	})
	if err != nil {
		return map[string]*contracts.WeightMap{}, fmt.Errorf("sector weights: %w", err)
	}
	return out, nil
}

// weightsForSector applies a sector override on top of base. Only keys
// already present in base are replaced; an empty sector gets base as is.
func weightsForSector(base *contracts.WeightMap, sector string, overrides map[string]*contracts.WeightMap) *contracts.WeightMap {
	w := base.Clone()
	if sector == "" {
		return w
	}
	override, ok := overrides[sector]
	if !ok {
		return w
	}
	for _, e := range override.Entries() {
		if w.Has(e.Key) {
			w.Set(e.Key, e.Weight)
		}
	}
	return w
}
