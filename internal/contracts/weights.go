package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical factor names
const (
	FactorGrowth        = "growth"
	FactorProfitability = "profitability"
	FactorValuation     = "valuation"
	FactorQuality       = "quality"
)

// CanonicalFactors lists the four factors in their default order
var CanonicalFactors = []string{FactorGrowth, FactorProfitability, FactorValuation, FactorQuality}

// WeightMap maps factor name → weight, remembering insertion order.
// Weighted sums iterate keys in that order so floating-point results are
// reproducible. Overwriting an existing key keeps its position.
// The zero value is an empty map ready to use.
type WeightMap struct {
	keys   []string
	values map[string]float64
}

// NewWeightMap builds a map from ordered entries
func NewWeightMap(pairs ...KeyWeight) *WeightMap {
	w := &WeightMap{}
	for _, p := range pairs {
		w.Set(p.Key, p.Weight)
	}
	return w
}

// KeyWeight is one ordered entry of a WeightMap
type KeyWeight struct {
	Key    string
	Weight float64
}

// Set assigns weight to key, appending the key if new
func (w *WeightMap) Set(key string, weight float64) {
	if w.values == nil {
		w.values = make(map[string]float64)
	}
	if _, ok := w.values[key]; !ok {
		w.keys = append(w.keys, key)
	}
	w.values[key] = weight
}

// Get returns the weight for key
func (w *WeightMap) Get(key string) (float64, bool) {
	if w == nil {
		return 0, false
	}
	v, ok := w.values[key]
	return v, ok
}

// GetOr returns the weight for key or def when missing
func (w *WeightMap) GetOr(key string, def float64) float64 {
	if v, ok := w.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key is present
func (w *WeightMap) Has(key string) bool {
	_, ok := w.Get(key)
	return ok
}

// Len returns the number of keys
func (w *WeightMap) Len() int {
	if w == nil {
		return 0
	}
	return len(w.keys)
}

// Entries returns the ordered entries
func (w *WeightMap) Entries() []KeyWeight {
	if w == nil {
		return nil
	}
	out := make([]KeyWeight, len(w.keys))
	for i, k := range w.keys {
		out[i] = KeyWeight{Key: k, Weight: w.values[k]}
	}
	return out
}

// Clone returns an independent copy
func (w *WeightMap) Clone() *WeightMap {
	out := &WeightMap{}
	for _, e := range w.Entries() {
		out.Set(e.Key, e.Weight)
	}
	return out
}

// Overlay returns a copy of w with every entry of other applied on top
func (w *WeightMap) Overlay(other *WeightMap) *WeightMap {
	out := w.Clone()
	for _, e := range other.Entries() {
		out.Set(e.Key, e.Weight)
	}
	return out
}

// MarshalJSON writes the entries as an object in insertion order
func (w WeightMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range w.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(w.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of numbers preserving document order
func (w *WeightMap) UnmarshalJSON(data []byte) error {
	*w = WeightMap{}
	return DecodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		v, ok := NumberFromJSON(raw)
		if !ok {
			return fmt.Errorf("weight %q is not a number", key)
		}
		w.Set(key, v)
		return nil
	})
}

// KeywordWeight is a signed weight applied when a filing title contains Keyword
type KeywordWeight struct {
	Keyword string  `json:"keyword"`
	Weight  float64 `json:"weight"`
}
