package selection

import (
	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/logger"
)

// DipCandidate is a ranked record plus its 180-day drawdown
type DipCandidate struct {
	contracts.ScoreRecord
	Drawdown180 *float64 `json:"drawdown180"`
}

// Screener filters ranked records down to dip candidates
// ⭐ SSOT: 딥 후보 필터링 로직은 여기서만
type Screener struct {
	config DipScreenConfig
	logger *logger.Logger
}

// DipScreenConfig defines the hard cut conditions. Absent values count as 0.
type DipScreenConfig struct {
	DrawdownMin float64 // 180일 고점 대비 하락폭 최소값 (예: 0.2 = 20%)
	Mom3Min     float64 // 3개월 모멘텀 최소값
	EventMin    float64 // 이벤트 점수 최소값
	TopN        int
}

// DefaultDipScreenConfig returns the default dip filter
func DefaultDipScreenConfig() DipScreenConfig {
	return DipScreenConfig{
		DrawdownMin: 0.2,
		Mom3Min:     0.0,
		EventMin:    0.5,
		TopN:        5,
	}
}

// NewScreener creates a new screener
func NewScreener(config DipScreenConfig, logger *logger.Logger) *Screener {
	return &Screener{
		config: config,
		logger: logger,
	}
}

// Config returns the active filter
func (s *Screener) Config() DipScreenConfig {
	return s.config
}

// Screen keeps candidates passing every condition, in input order, capped
// at TopN. When nothing passes, the first TopN inputs are returned instead.
// TopN <= 0 means no cap.
func (s *Screener) Screen(candidates []DipCandidate) []DipCandidate {
	passed := make([]DipCandidate, 0)
	filtered := make(map[string]int) // Filter name -> count

	for _, c := range candidates {
		if reason := s.checkConditions(c); reason != "" {
			filtered[reason]++
			continue
		}
		passed = append(passed, c)
	}

	fallback := len(passed) == 0
	out := passed
	if fallback {
		out = candidates
	}
	out = capTop(out, s.config.TopN)

	s.logger.WithFields(map[string]interface{}{
		"total_input":  len(candidates),
		"passed":       len(passed),
		"filtered_out": len(candidates) - len(passed),
		"filters":      filtered,
		"fallback":     fallback,
		"returned":     len(out),
	}).Info("Screening completed")

	return out
}

// checkConditions returns the first failing filter name, or "" when passed
func (s *Screener) checkConditions(c DipCandidate) string {
	if orZero(c.Drawdown180) < s.config.DrawdownMin {
		return "drawdown"
	}
	if orZero(c.Mom3) < s.config.Mom3Min {
		return "mom3"
	}
	if c.EventScore < s.config.EventMin {
		return "event"
	}
	return ""
}

func capTop(c []DipCandidate, n int) []DipCandidate {
	if n <= 0 || len(c) < n {
		n = len(c)
	}
	out := make([]DipCandidate, n)
	copy(out, c[:n])
	return out
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
