package domain

import "time"

// FailureType categorizes a failed provider attempt.
type FailureType string

const (
	FailureTypeTimeout   FailureType = "timeout"
	FailureTypeExecution FailureType = "execution"
	FailureTypeUnknown   FailureType = "unknown"
)

// FailureDetails holds diagnostics captured from a failed attempt.
type FailureDetails struct {
	Timeout  time.Duration `json:"timeout,omitempty"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exit_code,omitempty"`
}

// FallbackLogEntry records one failed attempt within an execution.
type FallbackLogEntry struct {
	Provider  string         `json:"provider"`
	Error     string         `json:"error"`
	Type      FailureType    `json:"type"`
	Details   FailureDetails `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

// ExecutionResult is the outcome of running a task through a provider chain.
type ExecutionResult struct {
	RunID         string             `json:"run_id"`
	Success       bool               `json:"success"`
	Provider      string             `json:"provider,omitempty"`
	Result        *TaskResult        `json:"result,omitempty"`
	FallbackLog   []FallbackLogEntry `json:"fallback_log"`
	ExecutionTime time.Duration      `json:"execution_time"`
	Error         string             `json:"error,omitempty"`
}

// AttemptedProviders lists the providers that failed, in order.
func (r *ExecutionResult) AttemptedProviders() []string {
	names := make([]string, 0, len(r.FallbackLog))
	for _, e := range r.FallbackLog {
		names = append(names, e.Provider)
	}
	return names
}
