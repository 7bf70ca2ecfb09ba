// Package metrics exposes Prometheus collectors for ranking runs, data-source
// fallbacks and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRankingRunsTotal    = "factorlens_ranking_runs_total"
	MetricRankingDuration     = "factorlens_ranking_duration_seconds"
	MetricRankedTickers       = "factorlens_ranked_tickers"
	MetricFallbacksTotal      = "factorlens_source_fallbacks_total"
	MetricHTTPRequestsTotal   = "factorlens_http_requests_total"
	MetricHTTPRequestDuration = "factorlens_http_request_duration_seconds"
)

// Ranking modes
const (
	ModeCandidates   = "candidates"
	ModeFundamentals = "fundamentals"
)

// Fallback sources
const (
	SourceFundamentals = "fundamentals"
	SourcePrices       = "prices"
	SourceFilings      = "filings"
	SourceKeywords     = "keywords"
)

// Metrics contains all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	rankedTickers *prometheus.GaugeVec
	fallbacks     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingRunsTotal,
				Help: "Total number of ranking runs by mode and status",
			},
			[]string{"mode", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingDuration,
				Help:    "Ranking run duration in seconds by mode",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
		rankedTickers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricRankedTickers,
				Help: "Number of tickers in the most recent ranking run by mode",
			},
			[]string{"mode"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFallbacksTotal,
				Help: "Number of times a data source failed and a neutral default was used",
			},
			[]string{"source"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of API requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "API request duration in seconds by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.rankedTickers,
		m.fallbacks,
		m.httpRequests,
		m.httpDuration,
	}
}

// ObserveRanking records one completed ranking run
func (m *Metrics) ObserveRanking(mode string, n int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.runsTotal.WithLabelValues(mode, status).Inc()
	m.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		m.rankedTickers.WithLabelValues(mode).Set(float64(n))
	}
}

// IncFallback counts a per-ticker fetch failure replaced by a neutral value
func (m *Metrics) IncFallback(source string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(source).Inc()
}

// ObserveHTTP records one API request
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
