package domain

import "time"

// ProviderStats tracks usage outcomes of a single provider.
// Zero time values mean "never".
type ProviderStats struct {
	Attempts            int       `json:"attempts"             db:"attempts"`
	Successes           int       `json:"successes"            db:"successes"`
	Failures            int       `json:"failures"             db:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures" db:"consecutive_failures"`
	LastUsed            time.Time `json:"last_used"            db:"last_used"`
	LastSuccess         time.Time `json:"last_success"         db:"last_success"`
	LastFailure         time.Time `json:"last_failure"         db:"last_failure"`
}

// SuccessRate returns successes/attempts, or 0 when the provider was never tried.
func (s ProviderStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// HasSucceeded reports whether the provider has ever succeeded.
func (s ProviderStats) HasSucceeded() bool {
	return !s.LastSuccess.IsZero()
}
