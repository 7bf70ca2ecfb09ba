package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/internal/signals"
	"github.com/wonny/factorlens/internal/strategyconfig"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/logger"
)

func TestUpperTickers(t *testing.T) {
	got := upperTickers([]string{"aapl", " msft,nvda ", ",", ""})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestParseWeightFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]float64
		wantErr bool
	}{
		{"single", "growth=0.4", map[string]float64{"growth": 0.4}, false},
		{"spaces", " growth = 0.4 , quality=0.1", map[string]float64{"growth": 0.4, "quality": 0.1}, false},
		{"trailing comma", "growth=0.4,", map[string]float64{"growth": 0.4}, false},
		{"missing value", "growth", nil, true},
		{"not a number", "growth=abc", nil, true},
		{"negative", "growth=-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wm, err := parseWeightFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), wm.Len())
			for k, v := range tt.want {
				got, ok := wm.Get(k)
				assert.True(t, ok, k)
				assert.InDelta(t, v, got, 1e-12, k)
			}
		})
	}
}

func TestScoringFlagsApply(t *testing.T) {
	var f scoringFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--weights", "growth=0.7", "--no-dip"}))

	base := selection.Options{
		Weights:     selection.DefaultWeights(),
		DipWeight:   0.12,
		UseDipBonus: true,
	}
	opts, err := f.apply(cmd, base)
	require.NoError(t, err)

	growth, _ := opts.Weights.Get("growth")
	quality, _ := opts.Weights.Get("quality")
	assert.Equal(t, 0.7, growth)
	assert.Equal(t, 0.25, quality)
	assert.False(t, opts.UseDipBonus)
	assert.Equal(t, 0.12, opts.DipWeight, "unset flag keeps the default")

	// base is not mutated
	g, _ := base.Weights.Get("growth")
	assert.Equal(t, 0.25, g)
}

func TestScoringFlagsApplyRejectsNegativeDipWeight(t *testing.T) {
	var f scoringFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--dip-weight", "-0.5"}))

	_, err := f.apply(cmd, selection.Options{Weights: selection.DefaultWeights()})
	assert.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	cfg := &config.Config{Scoring: config.ScoringConfig{
		Weights:             "growth=0.5,valuation=oops",
		SectorFactorWeights: `{"Technology": {"growth": 0.6}}`,
		DipWeight:           0.2,
		UseDipBonus:         true,
	}}

	opts := defaultOptions(cfg, nil, logger.Nop())

	growth, _ := opts.Weights.Get("growth")
	assert.Equal(t, 0.5, growth, "weights before the malformed entry are kept")
	assert.Contains(t, opts.SectorWeights, "Technology")
	assert.Equal(t, 0.2, opts.DipWeight)
	assert.True(t, opts.UseDipBonus)
}

func TestDefaultOptionsProfileOverrides(t *testing.T) {
	profile, err := strategyconfig.Parse([]byte(strings.TrimSpace(`
meta:
  profile_id: test
  version: "1"
scoring:
  weights:
    quality: 0.4
  sector_neutral: true
  dip:
    enabled: false
`)))
	require.NoError(t, err)

	cfg := &config.Config{Scoring: config.ScoringConfig{
		Weights:     "growth=0.25,profitability=0.25,valuation=0.25,quality=0.25",
		DipWeight:   0.12,
		UseDipBonus: true,
	}}

	opts := defaultOptions(cfg, profile, logger.Nop())

	quality, _ := opts.Weights.Get("quality")
	assert.Equal(t, 0.4, quality)
	assert.True(t, opts.SectorNeutral)
	assert.False(t, opts.UseDipBonus)
}

func TestKeywordLoaderPrefersProfile(t *testing.T) {
	cfg := &config.Config{Scoring: config.ScoringConfig{EventWeightsPath: "missing.json"}}

	_, err := keywordLoader(cfg, nil).LoadKeywordWeights()
	assert.Error(t, err, "file loader reads EVENT_WEIGHTS_PATH")

	profile, err := strategyconfig.Parse([]byte(`
meta:
  profile_id: test
  version: "1"
events:
  keywords:
    - keyword: beat
      weight: 0.5
`))
	require.NoError(t, err)

	weights, err := keywordLoader(cfg, profile).LoadKeywordWeights()
	require.NoError(t, err)
	require.Len(t, weights, 1)
	assert.Equal(t, "beat", weights[0].Keyword)
}

func TestRankCandidatesAutoHydrateFlag(t *testing.T) {
	flag := rankCandidatesCmd.Flags().Lookup("auto-hydrate")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestPrintDetailedEvaluations(t *testing.T) {
	var buf bytes.Buffer
	printDetailedEvaluations(&buf, []portfolio.DetailedEvaluation{
		{
			BasicMetrics: signals.BasicMetrics{Ticker: "AAPL", Ret20: contracts.Float(0.12), Vol30: contracts.Float(0.015)},
			Phase:        portfolio.PhaseRising,
		},
		{BasicMetrics: signals.BasicMetrics{Ticker: "NONE"}, Phase: portfolio.PhaseUnstable, Note: "no data"},
	})

	out := buf.String()
	assert.Contains(t, out, "CorrSPY")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "rising")
	assert.Contains(t, out, "0.120")
	assert.Contains(t, out, "no data")

	flag := reportPortfolioCmd.Flags().Lookup("detailed")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
