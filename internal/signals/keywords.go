package signals

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

// DefaultKeywordWeights is used whenever the configured table cannot be loaded
func DefaultKeywordWeights() []contracts.KeywordWeight {
	return []contracts.KeywordWeight{
		{Keyword: "guidance", Weight: 1.0},
		{Keyword: "partnership", Weight: 0.8},
		{Keyword: "acquisition", Weight: 1.0},
		{Keyword: "litigation", Weight: -0.8},
		{Keyword: "fda", Weight: 1.0},
		{Keyword: "recall", Weight: -1.0},
	}
}

// FileKeywordLoader reads a JSON object of keyword → weight, keeping file order
type FileKeywordLoader struct {
	Path string
}

// LoadKeywordWeights implements contracts.KeywordWeightsLoader
func (l FileKeywordLoader) LoadKeywordWeights() ([]contracts.KeywordWeight, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read keyword weights: %w", err)
	}
	return ParseKeywordWeights(data)
}

// ParseKeywordWeights decodes an ordered keyword table. Keys are used
// verbatim against lower-cased titles, so an upper-case key never matches.
// A repeated key keeps its first position and its last weight.
func ParseKeywordWeights(data []byte) ([]contracts.KeywordWeight, error) {
	var out []contracts.KeywordWeight
	index := map[string]int{}

	err := contracts.DecodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		w, ok := contracts.NumberFromJSON(raw)
		if !ok {
			return fmt.Errorf("keyword %q: weight is not a number", key)
		}
		if i, dup := index[key]; dup {
			out[i].Weight = w
			return nil
		}
		index[key] = len(out)
		out = append(out, contracts.KeywordWeight{Keyword: key, Weight: w})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse keyword weights: %w", err)
	}
	return out, nil
}

// StaticKeywordLoader serves a fixed table (e.g. from a scoring profile)
type StaticKeywordLoader []contracts.KeywordWeight

// LoadKeywordWeights implements contracts.KeywordWeightsLoader
func (s StaticKeywordLoader) LoadKeywordWeights() ([]contracts.KeywordWeight, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("empty keyword table")
	}
	return []contracts.KeywordWeight(s), nil
}

// KeywordCache loads the keyword table once and shares it across goroutines.
// A failed load falls back to DefaultKeywordWeights and is not retried.
type KeywordCache struct {
	loader contracts.KeywordWeightsLoader
	logger *logger.Logger

	mu      sync.RWMutex
	weights []contracts.KeywordWeight
	loaded  bool
}

// NewKeywordCache creates a cache over loader
func NewKeywordCache(loader contracts.KeywordWeightsLoader, log *logger.Logger) *KeywordCache {
	return &KeywordCache{
		loader: loader,
		logger: log,
	}
}

// Weights returns the cached table, loading it on first use
func (c *KeywordCache) Weights() []contracts.KeywordWeight {
	c.mu.RLock()
	if c.loaded {
		w := c.weights
		c.mu.RUnlock()
		return w
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.weights
	}

	weights, err := c.loader.LoadKeywordWeights()
	if err != nil {
		c.logger.WithError(err).Warn("Keyword weights unavailable, using defaults")
		weights = DefaultKeywordWeights()
	}
	c.weights = weights
	c.loaded = true
	return c.weights
}

// Reset forces the next Weights call to reload
func (c *KeywordCache) Reset() {
	c.mu.Lock()
	c.loaded = false
	c.weights = nil
	c.mu.Unlock()
}
