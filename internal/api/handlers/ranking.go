package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/selection"
	"github.com/wonny/factorlens/pkg/logger"
)

// Ranker is the ranking engine as used by the API
type Ranker interface {
	RankAuto(ctx context.Context, candidates []contracts.Candidate, autoHydrate bool, opts selection.Options) (*selection.AutoResult, error)
	RankTickersWithFundamentals(ctx context.Context, tickers []string, opts selection.Options) ([]contracts.ScoreRecord, error)
	DefaultOptions() selection.Options
}

// RankingHandler handles ranking endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	ranker Ranker
	logger *logger.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(ranker Ranker, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		ranker: ranker,
		logger: log,
	}
}

// ScoringOverrides are optional per-request scoring settings
type ScoringOverrides struct {
	Weights       *contracts.WeightMap `json:"weights"`
	SectorNeutral *bool                `json:"sector_neutral"`
	DipWeight     *float64             `json:"dip_weight" validate:"omitempty,gte=0"`
	UseDipBonus   *bool                `json:"use_dip_bonus"`
}

// apply returns base with the overrides set
func (o ScoringOverrides) apply(base selection.Options) selection.Options {
	if o.Weights != nil {
		base.Weights = o.Weights
	}
	if o.SectorNeutral != nil {
		base.SectorNeutral = *o.SectorNeutral
	}
	if o.DipWeight != nil {
		base.DipWeight = *o.DipWeight
	}
	if o.UseDipBonus != nil {
		base.UseDipBonus = *o.UseDipBonus
	}
	return base
}

// RankCandidatesRequest is the body of POST /api/rank/candidates.
// AutoHydrate defaults to true.
type RankCandidatesRequest struct {
	Candidates  []contracts.Candidate `json:"candidates"`
	AutoHydrate *bool                 `json:"auto_hydrate"`
	ScoringOverrides
}

// RankTickersRequest is the body of POST /api/rank/tickers
type RankTickersRequest struct {
	Tickers []string `json:"tickers" validate:"max=200,dive,required,max=16"`
	ScoringOverrides
}

// RankCandidates scores caller-supplied factor records. Records missing a
// factor are re-ranked from fundamentals unless auto_hydrate is false.
// POST /api/rank/candidates
func (h *RankingHandler) RankCandidates(w http.ResponseWriter, r *http.Request) {
	var req RankCandidatesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Candidates) == 0 {
		respondJSON(w, http.StatusOK, []contracts.CandidateScore{})
		return
	}

	autoHydrate := req.AutoHydrate == nil || *req.AutoHydrate
	ranked, err := h.ranker.RankAuto(r.Context(), req.Candidates, autoHydrate, req.apply(h.ranker.DefaultOptions()))
	if err != nil {
		h.rankError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ranked)
}

// RankTickers ranks tickers from fundamentals, momentum and filings
// POST /api/rank/tickers
func (h *RankingHandler) RankTickers(w http.ResponseWriter, r *http.Request) {
	var req RankTickersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Tickers) == 0 {
		respondJSON(w, http.StatusOK, []contracts.ScoreRecord{})
		return
	}

	ranked, err := h.ranker.RankTickersWithFundamentals(r.Context(), req.Tickers, req.apply(h.ranker.DefaultOptions()))
	if err != nil {
		h.rankError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ranked)
}

func (h *RankingHandler) rankError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusServiceUnavailable, "Ranking cancelled")
		return
	}
	h.logger.WithError(err).Error("Ranking failed")
	respondError(w, http.StatusInternalServerError, "Ranking failed")
}
