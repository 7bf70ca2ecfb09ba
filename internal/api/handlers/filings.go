package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

// defaultFilingsLimit applies when ?limit= is absent
const defaultFilingsLimit = 10

// EventScorer scores recent filings of a ticker
type EventScorer interface {
	ScoreWithLimit(ctx context.Context, ticker string, limit int) (float64, error)
}

// FilingsHandler handles filing and event endpoints
type FilingsHandler struct {
	filings contracts.FilingsProvider
	events  EventScorer
	logger  *logger.Logger
}

// NewFilingsHandler creates a new filings handler
func NewFilingsHandler(filings contracts.FilingsProvider, events EventScorer, log *logger.Logger) *FilingsHandler {
	return &FilingsHandler{
		filings: filings,
		events:  events,
		logger:  log,
	}
}

// EventResponse is the body of GET /api/events/{ticker}
type EventResponse struct {
	Ticker     string  `json:"ticker"`
	EventScore float64 `json:"eventScore"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// GetFilings returns recent filings
// GET /api/filings/{ticker}?forms=8-K,10-K&limit=10
func (h *FilingsHandler) GetFilings(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])
	limit, ok := parseLimit(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	filings, err := h.filings.RecentFilings(r.Context(), ticker, splitList(r.URL.Query().Get("forms")), limit)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to fetch filings")
		respondError(w, http.StatusBadGateway, "Failed to fetch filings")
		return
	}
	if filings == nil {
		filings = []contracts.Filing{}
	}
	respondJSON(w, http.StatusOK, filings)
}

// GetEvent returns the filing event score
// GET /api/events/{ticker}?limit=10
func (h *FilingsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])
	limit, ok := parseLimit(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	score, err := h.events.ScoreWithLimit(r.Context(), ticker, limit)
	resp := EventResponse{Ticker: ticker, EventScore: score}
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Warn("Data unavailable, using neutral value")
		resp.Degraded = true
	}
	respondJSON(w, http.StatusOK, resp)
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultFilingsLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
