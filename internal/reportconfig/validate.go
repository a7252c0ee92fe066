package reportconfig

import "fmt"

// ValidationError 검증 실패 (프로그래머 오류)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(o Options) error {
	if o.PeriodsPerYear <= 0 {
		return ValidationError{"periods_per_year", "must be > 0"}
	}
	if o.RiskFreeRate <= -1 {
		return ValidationError{"risk_free_rate", "must be > -1"}
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		return ValidationError{"confidence", "must be in (0, 1)"}
	}
	if o.RollingWindow < 2 {
		return ValidationError{"rolling_window", "must be >= 2"}
	}
	if o.BetaWindow < 2 {
		return ValidationError{"beta_window", "must be >= 2"}
	}
	if o.HistogramBins < 1 {
		return ValidationError{"histogram_bins", "must be >= 1"}
	}
	if o.SmartPenaltyLag < 1 {
		return ValidationError{"smart_penalty_lag", "must be >= 1"}
	}
	if o.Mode != ModeFull && o.Mode != ModeBasic {
		return ValidationError{"mode", fmt.Sprintf("must be %s or %s, got %q", ModeFull, ModeBasic, o.Mode)}
	}
	return nil
}
