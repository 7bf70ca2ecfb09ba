package selection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/contracts"
)

func TestNeedsHydration(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       bool
	}{
		{name: "all factors", candidates: []string{`{"ticker":"A","growth":1,"profitability":1,"valuation":1,"quality":1}`}, want: false},
		{name: "null counts as present", candidates: []string{`{"ticker":"A","growth":null,"profitability":1,"valuation":1,"quality":1}`}, want: false},
		{name: "one missing", candidates: []string{`{"ticker":"A","growth":1,"profitability":1,"valuation":1}`}, want: true},
		{
			name: "any candidate",
			candidates: []string{
				`{"ticker":"A","growth":1,"profitability":1,"valuation":1,"quality":1}`,
				`{"ticker":"B"}`,
			},
			want: true,
		},
		{name: "empty", candidates: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := make([]contracts.Candidate, len(tt.candidates))
			for i, raw := range tt.candidates {
				cs[i] = candidate(t, raw)
			}
			assert.Equal(t, tt.want, NeedsHydration(cs))
		})
	}
}

func TestRankAuto(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]*contracts.Fundamentals{
			"CHEAP": {PE: contracts.Float(8), PB: contracts.Float(1), EPS: contracts.Float(5)},
			"RICH":  {PE: contracts.Float(40), PB: contracts.Float(9), EPS: contracts.Float(1)},
		},
	}
	full := `{"ticker":"RICH","growth":1,"profitability":1,"valuation":1,"quality":1}`
	partial := `{"ticker":"CHEAP","growth":0.1}`

	tests := []struct {
		name         string
		candidates   []string
		autoHydrate  bool
		wantHydrated bool
		wantFirst    string
	}{
		{name: "complete records are scored as given", candidates: []string{partial, full}, autoHydrate: false, wantHydrated: false, wantFirst: "RICH"},
		{name: "missing factors hydrate from fundamentals", candidates: []string{full, partial}, autoHydrate: true, wantHydrated: true, wantFirst: "CHEAP"},
		{name: "nothing missing stays on candidates", candidates: []string{full}, autoHydrate: true, wantHydrated: false, wantFirst: "RICH"},
		{name: "no tickers stays on candidates", candidates: []string{`{"growth":1}`}, autoHydrate: true, wantHydrated: false, wantFirst: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(market, stubFilings{}, nil)
			opts := e.DefaultOptions()
			opts.UseDipBonus = false

			cs := make([]contracts.Candidate, len(tt.candidates))
			for i, raw := range tt.candidates {
				cs[i] = candidate(t, raw)
			}

			res, err := e.RankAuto(context.Background(), cs, tt.autoHydrate, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHydrated, res.Hydrated)

			if tt.wantHydrated {
				assert.Nil(t, res.Candidates)
				require.Len(t, res.Records, len(cs))
				assert.Equal(t, tt.wantFirst, res.Records[0].Ticker)
				return
			}
			assert.Nil(t, res.Records)
			require.Len(t, res.Candidates, len(cs))
			assert.Equal(t, tt.wantFirst, res.Candidates[0].Candidate.Ticker())
		})
	}
}

func TestRankAuto_Cancelled(t *testing.T) {
	e := newTestEngine(&fakeMarket{}, stubFilings{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RankAuto(ctx, []contracts.Candidate{candidate(t, `{"ticker":"A"}`)}, true, e.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(AutoResult{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = json.Marshal(AutoResult{Hydrated: true, Records: []contracts.ScoreRecord{{Ticker: "A", Score: 0.5}}})
	require.NoError(t, err)
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0]["ticker"])
	assert.Equal(t, 0.5, out[0]["score"])
}
