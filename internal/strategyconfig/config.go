package strategyconfig

import (
	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/selection"
)

// Config is a scoring profile. Every scoring field is optional; a set
// field overrides the environment-derived setting.
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Scoring   Scoring   `yaml:"scoring" json:"scoring"`
	Events    Events    `yaml:"events" json:"events"`
	Screening Screening `yaml:"screening" json:"screening"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID   string `yaml:"profile_id" json:"profile_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Scoring: 팩터 가중치와 딥 보너스
type Scoring struct {
	Weights       FactorWeights            `yaml:"weights" json:"weights"`
	SectorNeutral *bool                    `yaml:"sector_neutral" json:"sector_neutral"`
	SectorWeights map[string]FactorWeights `yaml:"sector_weights" json:"sector_weights"`
	Dip           Dip                      `yaml:"dip" json:"dip"`
}

// FactorWeights holds the four canonical factor weights; nil = not set
type FactorWeights struct {
	Growth        *float64 `yaml:"growth" json:"growth"`
	Profitability *float64 `yaml:"profitability" json:"profitability"`
	Valuation     *float64 `yaml:"valuation" json:"valuation"`
	Quality       *float64 `yaml:"quality" json:"quality"`
}

type Dip struct {
	Enabled *bool    `yaml:"enabled" json:"enabled"`
	Weight  *float64 `yaml:"weight" json:"weight"`
}

// Events: 공시 제목 키워드 가중치
type Events struct {
	FilingsLimit int       `yaml:"filings_limit" json:"filings_limit"`
	Keywords     []Keyword `yaml:"keywords" json:"keywords"`
}

type Keyword struct {
	Keyword string  `yaml:"keyword" json:"keyword"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// Screening: 딥 후보 필터
type Screening struct {
	Dip DipScreen `yaml:"dip" json:"dip"`
}

type DipScreen struct {
	DrawdownMin *float64 `yaml:"drawdown_min" json:"drawdown_min"`
	Mom3Min     *float64 `yaml:"mom3_min" json:"mom3_min"`
	EventMin    *float64 `yaml:"event_min" json:"event_min"`
	TopN        *int     `yaml:"top_n" json:"top_n"`
}

// set returns the weights that are present, in canonical order
func (w FactorWeights) set() []contracts.KeyWeight {
	var out []contracts.KeyWeight
	add := func(key string, v *float64) {
		if v != nil {
			out = append(out, contracts.KeyWeight{Key: key, Weight: *v})
		}
	}
	add(contracts.FactorGrowth, w.Growth)
	add(contracts.FactorProfitability, w.Profitability)
	add(contracts.FactorValuation, w.Valuation)
	add(contracts.FactorQuality, w.Quality)
	return out
}

// WeightMap returns the present weights, or nil when none are set
func (w FactorWeights) WeightMap() *contracts.WeightMap {
	entries := w.set()
	if len(entries) == 0 {
		return nil
	}
	return contracts.NewWeightMap(entries...)
}

// Sum adds the present weights
func (w FactorWeights) Sum() float64 {
	sum := 0.0
	for _, e := range w.set() {
		sum += e.Weight
	}
	return sum
}

// ApplyOptions overlays the profile on base
func (c *Config) ApplyOptions(base selection.Options) selection.Options {
	opts := base
	if wm := c.Scoring.Weights.WeightMap(); wm != nil {
		if opts.Weights == nil {
			opts.Weights = selection.DefaultWeights()
		}
		opts.Weights = opts.Weights.Overlay(wm)
	}
	if c.Scoring.SectorNeutral != nil {
		opts.SectorNeutral = *c.Scoring.SectorNeutral
	}
	if len(c.Scoring.SectorWeights) > 0 {
		opts.SectorWeights = make(map[string]*contracts.WeightMap, len(c.Scoring.SectorWeights))
		for sector, w := range c.Scoring.SectorWeights {
			if wm := w.WeightMap(); wm != nil {
				opts.SectorWeights[sector] = wm
			}
		}
	}
	if c.Scoring.Dip.Enabled != nil {
		opts.UseDipBonus = *c.Scoring.Dip.Enabled
	}
	if c.Scoring.Dip.Weight != nil {
		opts.DipWeight = *c.Scoring.Dip.Weight
	}
	return opts
}

// ApplyScreen overlays the dip filter on base
func (c *Config) ApplyScreen(base selection.DipScreenConfig) selection.DipScreenConfig {
	out := base
	d := c.Screening.Dip
	if d.DrawdownMin != nil {
		out.DrawdownMin = *d.DrawdownMin
	}
	if d.Mom3Min != nil {
		out.Mom3Min = *d.Mom3Min
	}
	if d.EventMin != nil {
		out.EventMin = *d.EventMin
	}
	if d.TopN != nil {
		out.TopN = *d.TopN
	}
	return out
}

// KeywordWeights returns the profile keyword table in file order (nil if empty)
func (c *Config) KeywordWeights() []contracts.KeywordWeight {
	if len(c.Events.Keywords) == 0 {
		return nil
	}
	out := make([]contracts.KeywordWeight, len(c.Events.Keywords))
	for i, k := range c.Events.Keywords {
		out[i] = contracts.KeywordWeight{Keyword: k.Keyword, Weight: k.Weight}
	}
	return out
}
