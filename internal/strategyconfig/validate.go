package strategyconfig

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var profileIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if !profileIDPattern.MatchString(cfg.Meta.ProfileID) {
		return ValidationError{"meta.profile_id", "must be lower-case letters, digits, '_' or '-'"}
	}

	// === Scoring ===
	if err := validateWeights(cfg.Scoring.Weights, "scoring.weights"); err != nil {
		return err
	}
	for sector, w := range cfg.Scoring.SectorWeights {
		if strings.TrimSpace(sector) == "" {
			return ValidationError{"scoring.sector_weights", "sector name must not be empty"}
		}
		if err := validateWeights(w, "scoring.sector_weights."+sector); err != nil {
			return err
		}
	}
	if w := cfg.Scoring.Dip.Weight; w != nil && (*w < 0 || math.IsNaN(*w)) {
		return ValidationError{"scoring.dip.weight", "must be >= 0"}
	}

	// === Events ===
	if cfg.Events.FilingsLimit < 0 {
		return ValidationError{"events.filings_limit", "must be >= 0"}
	}
	for i, k := range cfg.Events.Keywords {
		if k.Keyword == "" {
			return ValidationError{fmt.Sprintf("events.keywords[%d].keyword", i), "required"}
		}
		if k.Weight < -1 || k.Weight > 1 {
			return ValidationError{fmt.Sprintf("events.keywords[%d].weight", i), "must be in range [-1, 1]"}
		}
	}

	// === Screening ===
	d := cfg.Screening.Dip
	if d.DrawdownMin != nil {
		if err := validatePctRange(*d.DrawdownMin, "screening.dip.drawdown_min"); err != nil {
			return err
		}
	}
	if d.EventMin != nil {
		if err := validatePctRange(*d.EventMin, "screening.dip.event_min"); err != nil {
			return err
		}
	}
	if d.TopN != nil && *d.TopN < 0 {
		return ValidationError{"screening.dip.top_n", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 가중치 합이 1이 아니면 점수 스케일이 달라짐
	if len(cfg.Scoring.Weights.set()) == 4 && math.Abs(cfg.Scoring.Weights.Sum()-1.0) > 1e-6 {
		warnings = append(warnings, Warning{
			Code:    "WEIGHTS_SUM",
			Message: fmt.Sprintf("factor weights sum to %.4f, scores are not on a 0..1 scale", cfg.Scoring.Weights.Sum()),
		})
	}

	// 대문자 키워드는 소문자 제목과 절대 매칭되지 않음
	for _, k := range cfg.Events.Keywords {
		if k.Keyword != strings.ToLower(k.Keyword) {
			warnings = append(warnings, Warning{
				Code:    "KEYWORD_CASE",
				Message: fmt.Sprintf("keyword %q has upper-case letters and never matches", k.Keyword),
			})
		}
	}

	if w := cfg.Scoring.Dip.Weight; w != nil && *w > 0.5 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_DIP_WEIGHT",
			Message: "dip weight > 0.5: dip bonus can dominate factor scores",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateWeights(w FactorWeights, field string) error {
	for _, e := range w.set() {
		if e.Weight < 0 || math.IsNaN(e.Weight) {
			return ValidationError{field + "." + e.Key, "must be >= 0"}
		}
	}
	return nil
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
