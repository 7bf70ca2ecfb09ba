package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/factorlens/internal/pipeline"
	"github.com/wonny/factorlens/internal/portfolio"
	"github.com/wonny/factorlens/internal/report"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/pkg/logger"
)

// Pipelines is the orchestrator as used by the API
type Pipelines interface {
	DipCandidates(ctx context.Context, req pipeline.DipRequest) (*pipeline.DipResult, error)
	ThemeOverview(ctx context.Context, theme string, tickers []string, lookbackDays int) (string, error)
	PortfolioReport(ctx context.Context, holdings []portfolio.Holding) (*pipeline.PortfolioResult, error)
	DipScreen() selection.DipScreenConfig
}

// ReportHandler handles report and pipeline endpoints
type ReportHandler struct {
	pipelines Pipelines
	evaluator *portfolio.Evaluator
	logger    *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(pipelines Pipelines, evaluator *portfolio.Evaluator, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		pipelines: pipelines,
		evaluator: evaluator,
		logger:    log,
	}
}

// DipRequest is the body of POST /api/dip-candidates
type DipRequest struct {
	Theme       string   `json:"theme" validate:"required,max=64"`
	Tickers     []string `json:"tickers" validate:"max=200,dive,required,max=16"`
	TopN        *int     `json:"top_n" validate:"omitempty,gte=1,lte=100"`
	DrawdownMin *float64 `json:"drawdown_min" validate:"omitempty,gte=0,lte=1"`
	Mom3Min     *float64 `json:"mom3_min"`
	EventMin    *float64 `json:"event_min" validate:"omitempty,gte=0,lte=1"`
	Save        bool     `json:"save"`
}

// PortfolioRequest is the body of POST /api/portfolio/evaluate. Holdings
// text is parsed when Tickers is empty. Report takes precedence over
// Detailed.
type PortfolioRequest struct {
	Holdings string   `json:"holdings" validate:"max=4096"`
	Tickers  []string `json:"tickers" validate:"max=200,dive,required,max=16"`
	Report   bool     `json:"report"`
	Detailed bool     `json:"detailed"`
}

// DipCandidates runs the dip candidate pipeline
// POST /api/dip-candidates
func (h *ReportHandler) DipCandidates(w http.ResponseWriter, r *http.Request) {
	var req DipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	screen := h.pipelines.DipScreen()
	if req.TopN != nil {
		screen.TopN = *req.TopN
	}
	if req.DrawdownMin != nil {
		screen.DrawdownMin = *req.DrawdownMin
	}
	if req.Mom3Min != nil {
		screen.Mom3Min = *req.Mom3Min
	}
	if req.EventMin != nil {
		screen.EventMin = *req.EventMin
	}

	result, err := h.pipelines.DipCandidates(r.Context(), pipeline.DipRequest{
		Theme:   req.Theme,
		Tickers: req.Tickers,
		Screen:  &screen,
		Save:    req.Save,
	})
	if errors.Is(err, pipeline.ErrNoTickers) {
		respondJSON(w, http.StatusOK, pipeline.DipResult{Theme: req.Theme, Top: []selection.DipCandidate{}})
		return
	}
	if errors.Is(err, pipeline.ErrInvalidTheme) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Dip candidate run failed")
		respondError(w, http.StatusInternalServerError, "Dip candidate run failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ThemeReport renders the theme overview as markdown or HTML
// GET /api/reports/theme?theme=&tickers=&format=md|html&lookback=7
func (h *ReportHandler) ThemeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	theme := strings.TrimSpace(q.Get("theme"))
	if theme == "" {
		respondError(w, http.StatusBadRequest, "theme is required")
		return
	}
	format := q.Get("format")
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "html" {
		respondError(w, http.StatusBadRequest, "format must be md or html")
		return
	}
	lookback := pipeline.ThemeLookbackDays
	if raw := q.Get("lookback"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "lookback must be a positive integer")
			return
		}
		lookback = n
	}

	md, err := h.pipelines.ThemeOverview(r.Context(), theme, splitList(q.Get("tickers")), lookback)
	if err != nil {
		h.logger.WithError(err).Error("Theme overview failed")
		respondError(w, http.StatusInternalServerError, "Theme overview failed")
		return
	}

	if format == "html" {
		html, err := report.RenderHTML(md)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to render HTML")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(html))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// EvaluatePortfolio returns holding phases, optionally with price metrics
// or writing the report note
// POST /api/portfolio/evaluate
func (h *ReportHandler) EvaluatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	holdings := make([]portfolio.Holding, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		holdings = append(holdings, portfolio.Holding{Ticker: strings.ToUpper(t)})
	}
	if len(holdings) == 0 {
		holdings = portfolio.ParseHoldingsText(req.Holdings)
	}
	if len(holdings) == 0 {
		respondJSON(w, http.StatusOK, []portfolio.Evaluation{})
		return
	}

	if req.Report {
		result, err := h.pipelines.PortfolioReport(r.Context(), holdings)
		if err != nil {
			h.logger.WithError(err).Error("Portfolio report failed")
			respondError(w, http.StatusInternalServerError, "Portfolio report failed")
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	if req.Detailed {
		detailed, err := h.evaluator.EvaluateDetailed(r.Context(), portfolio.Tickers(holdings))
		if err != nil {
			respondError(w, http.StatusServiceUnavailable, "Evaluation cancelled")
			return
		}
		respondJSON(w, http.StatusOK, detailed)
		return
	}

	evals, err := h.evaluator.Evaluate(r.Context(), portfolio.Tickers(holdings))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Evaluation cancelled")
		return
	}
	respondJSON(w, http.StatusOK, evals)
}
