package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlens/internal/api/handlers"
	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/metrics"
)

type fakeRanker struct {
	lastOpts        selection.Options
	lastTickers     []string
	lastAutoHydrate bool
}

func (f *fakeRanker) RankAuto(ctx context.Context, candidates []contracts.Candidate, autoHydrate bool, opts selection.Options) (*selection.AutoResult, error) {
	f.lastAutoHydrate = autoHydrate
	if autoHydrate && selection.NeedsHydration(candidates) {
		var tickers []string
		for _, c := range candidates {
			if t := c.Ticker(); t != "" {
				tickers = append(tickers, t)
			}
		}
		if len(tickers) > 0 {
			records, err := f.RankTickersWithFundamentals(ctx, tickers, opts)
			return &selection.AutoResult{Hydrated: true, Records: records}, err
		}
	}

	f.lastOpts = opts
	out := make([]contracts.CandidateScore, len(candidates))
	for i, c := range candidates {
		out[i] = contracts.CandidateScore{Candidate: c, Score: 0.5}
	}
	return &selection.AutoResult{Candidates: out}, nil
}

func (f *fakeRanker) RankTickersWithFundamentals(_ context.Context, tickers []string, opts selection.Options) ([]contracts.ScoreRecord, error) {
	f.lastOpts = opts
	f.lastTickers = tickers
	out := make([]contracts.ScoreRecord, len(tickers))
	for i, t := range tickers {
		out[i] = contracts.ScoreRecord{Ticker: t, Score: 0.5}
	}
	return out, nil
}

func (f *fakeRanker) DefaultOptions() selection.Options {
	return selection.Options{Weights: selection.DefaultWeights(), DipWeight: 0.12, UseDipBonus: true}
}

type fakeFilings struct{ forms []string }

func (f *fakeFilings) RecentFilings(_ context.Context, ticker string, forms []string, limit int) ([]contracts.Filing, error) {
	f.forms = forms
	if ticker == "NONE" {
		return nil, nil
	}
	return []contracts.Filing{{Ticker: ticker, Form: "8-K", Title: "Guidance update"}}, nil
}

type fakeEvents struct{}

func (fakeEvents) ScoreWithLimit(_ context.Context, ticker string, _ int) (float64, error) {
	if ticker == "DOWN" {
		return 0.5, contracts.ErrDataUnavailable
	}
	return 0.8, nil
}

type fakePipelines struct {
	dipReq pipeline.DipRequest
}

func (f *fakePipelines) DipCandidates(_ context.Context, req pipeline.DipRequest) (*pipeline.DipResult, error) {
	f.dipReq = req
	if len(req.Tickers) == 0 {
		return nil, pipeline.ErrNoTickers
	}
	if strings.Contains(req.Theme, "..") {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrInvalidTheme, req.Theme)
	}
	return &pipeline.DipResult{Theme: req.Theme, Top: []selection.DipCandidate{{ScoreRecord: contracts.ScoreRecord{Ticker: req.Tickers[0]}}}}, nil
}

func (f *fakePipelines) ThemeOverview(_ context.Context, theme string, tickers []string, _ int) (string, error) {
	return "## " + theme + " Theme Overview\n\n| Ticker |\n|---|\n| " + strings.Join(tickers, ",") + " |\n", nil
}

func (f *fakePipelines) PortfolioReport(_ context.Context, holdings []portfolio.Holding) (*pipeline.PortfolioResult, error) {
	return &pipeline.PortfolioResult{NotePath: "Portfolios/Phase Report.md"}, nil
}

func (f *fakePipelines) DipScreen() selection.DipScreenConfig {
	return selection.DefaultDipScreenConfig()
}

type noPrices struct{}

func (noPrices) PriceHistory(context.Context, string) ([]contracts.PricePoint, error) {
	return nil, contracts.ErrDataUnavailable
}

type testServer struct {
	handler   http.Handler
	ranker    *fakeRanker
	filings   *fakeFilings
	pipelines *fakePipelines
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{ranker: &fakeRanker{}, filings: &fakeFilings{}, pipelines: &fakePipelines{}}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics()
	require.NoError(t, m.Register(reg))

	log := logger.Nop()
	ts.handler = NewRouter(Handlers{
		Ranking: handlers.NewRankingHandler(ts.ranker, log),
		Filings: handlers.NewFilingsHandler(ts.filings, fakeEvents{}, log),
		Reports: handlers.NewReportHandler(ts.pipelines, portfolio.NewEvaluator(noPrices{}, log), log),
	}, m, reg, log)
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := newTestServer(t).do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "rank candidates", method: "POST", path: "/api/rank/candidates"},
		{name: "dip candidates", method: "POST", path: "/api/dip-candidates"},
		{name: "theme report", method: "GET", path: "/api/reports/theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, tt.path, nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", tt.method)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), tt.method)
			assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		})
	}

	t.Run("actual request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRankCandidates(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/rank/candidates", `{"candidates":[{"ticker":"A","growth":1,"note":"x"}],"dip_weight":0.2,"auto_hydrate":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[{"ticker":"A","growth":1,"note":"x","dip_bonus":0,"base_score":0,"score":0.5}]`, rec.Body.String())
	assert.Equal(t, 0.2, ts.ranker.lastOpts.DipWeight)
	assert.True(t, ts.ranker.lastOpts.UseDipBonus)
	assert.False(t, ts.ranker.lastAutoHydrate)
	assert.Nil(t, ts.ranker.lastTickers)
}

func TestRankCandidates_AutoHydrate(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantTickers []string
		wantBody    string
	}{
		{
			name:        "missing factors hydrate by default",
			body:        `{"candidates":[{"ticker":"A","growth":1},{"ticker":"B"},{"note":"no ticker"}],"dip_weight":0.3}`,
			wantTickers: []string{"A", "B"},
		},
		{
			name:     "complete records are scored as given",
			body:     `{"candidates":[{"ticker":"A","growth":1,"profitability":1,"valuation":1,"quality":1}]}`,
			wantBody: `[{"ticker":"A","growth":1,"profitability":1,"valuation":1,"quality":1,"dip_bonus":0,"base_score":0,"score":0.5}]`,
		},
		{
			name:     "no tickers to hydrate",
			body:     `{"candidates":[{"growth":1}],"auto_hydrate":true}`,
			wantBody: `[{"growth":1,"dip_bonus":0,"base_score":0,"score":0.5}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do("POST", "/api/rank/candidates", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, ts.ranker.lastAutoHydrate)
			assert.Equal(t, tt.wantTickers, ts.ranker.lastTickers)

			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				return
			}
			var records []contracts.ScoreRecord
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
			require.Len(t, records, 2)
			assert.Equal(t, "A", records[0].Ticker)
			assert.Equal(t, 0.3, ts.ranker.lastOpts.DipWeight)
		})
	}
}

func TestRankCandidates_Empty(t *testing.T) {
	rec := newTestServer(t).do("POST", "/api/rank/candidates", `{"candidates":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRankTickers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/rank/tickers", `{"tickers":["AAPL","MSFT"],"sector_neutral":true,"use_dip_bonus":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got []contracts.ScoreRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "MSFT", got[1].Ticker)
	assert.True(t, ts.ranker.lastOpts.SectorNeutral)
	assert.False(t, ts.ranker.lastOpts.UseDipBonus)
}

func TestRankTickers_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "empty list", body: `{"tickers":[]}`, code: http.StatusOK},
		{name: "blank ticker", body: `{"tickers":["AAPL",""]}`, code: http.StatusBadRequest},
		{name: "negative dip weight", body: `{"tickers":["AAPL"],"dip_weight":-1}`, code: http.StatusBadRequest},
		{name: "malformed json", body: `{"tickers":`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestServer(t).do("POST", "/api/rank/tickers", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestFilingsAndEvents(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("GET", "/api/filings/aapl?forms=8-K,10-K", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticker":"AAPL"`)
	assert.Equal(t, []string{"8-K", "10-K"}, ts.filings.forms)

	rec = ts.do("GET", "/api/filings/NONE", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do("GET", "/api/filings/AAPL?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("GET", "/api/events/AAPL", "")
	assert.JSONEq(t, `{"ticker":"AAPL","eventScore":0.8}`, rec.Body.String())

	rec = ts.do("GET", "/api/events/DOWN", "")
	assert.JSONEq(t, `{"ticker":"DOWN","eventScore":0.5,"degraded":true}`, rec.Body.String())
}

func TestDipCandidatesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/dip-candidates", `{"theme":"AI","tickers":["NVDA"],"top_n":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ticker":"NVDA"`)
	require.NotNil(t, ts.pipelines.dipReq.Screen)
	assert.Equal(t, 3, ts.pipelines.dipReq.Screen.TopN)
	assert.Equal(t, 0.2, ts.pipelines.dipReq.Screen.DrawdownMin)

	rec = ts.do("POST", "/api/dip-candidates", `{"theme":"AI","tickers":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"top":[]`)

	rec = ts.do("POST", "/api/dip-candidates", `{"tickers":["NVDA"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("POST", "/api/dip-candidates", `{"theme":"../../escaped","tickers":["NVDA"],"save":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid theme")
}

func TestThemeReportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("GET", "/api/reports/theme?theme=AI&tickers=NVDA,AMD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "## AI Theme Overview")

	rec = ts.do("GET", "/api/reports/theme?theme=AI&tickers=NVDA&format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h2>AI Theme Overview</h2>")
	assert.Contains(t, rec.Body.String(), "<table>")

	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/reports/theme", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do("GET", "/api/reports/theme?theme=AI&format=pdf", "").Code)
}

func TestEvaluatePortfolio(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/portfolio/evaluate", `{"holdings":"AAPL@2024-10-01:185, lly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var evals []portfolio.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evals))
	require.Len(t, evals, 2)
	assert.Equal(t, "LLY", evals[1].Ticker)
	assert.Equal(t, portfolio.PhaseUnstable, evals[1].Phase)

	rec = ts.do("POST", "/api/portfolio/evaluate", `{"tickers":["AAPL"],"report":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Phase Report.md")

	rec = ts.do("POST", "/api/portfolio/evaluate", `{}`)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEvaluatePortfolio_Detailed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do("POST", "/api/portfolio/evaluate", `{"tickers":["aapl","msft"],"detailed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "AAPL", out[0]["ticker"])
	assert.Equal(t, "unstable", out[0]["phase"])
	assert.Equal(t, "no data", out[0]["note"])
	for _, key := range []string{"vol30", "vol60", "dd180", "corr_spy", "ret20", "mom1"} {
		assert.Contains(t, out[0], key)
		assert.Nil(t, out[0][key])
	}

	rec = ts.do("POST", "/api/portfolio/evaluate", `{"tickers":["AAPL"],"detailed":true,"report":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Phase Report.md")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do("GET", "/health", "")

	rec := ts.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), metrics.MetricHTTPRequestsTotal)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}
