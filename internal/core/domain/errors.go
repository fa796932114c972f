package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ErrCircuitOpen is returned when every configured provider is excluded by the circuit breaker.
var ErrCircuitOpen = &CircuitOpenError{}

// TimeoutError means a provider did not finish within its time limit.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s timed out after %s", e.Provider, e.Timeout)
}

func (e *TimeoutError) TypeName() string { return "TimeoutError" }

// ExecutionError means a provider ran but reported failure.
type ExecutionError struct {
	Provider string
	Message  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *ExecutionError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.ExitCode)
	}
	return e.Message
}

func (e *ExecutionError) TypeName() string { return "ExecutionError" }

// AllProvidersFailedError is returned when every provider in a chain failed.
// Err is the last provider's error, kept so recovery can act on its type.
type AllProvidersFailedError struct {
	Attempted []string
	LastError string
	Err       error
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempted) == 0 {
		return "all providers failed: no providers attempted"
	}
	return fmt.Sprintf("all providers failed (%s): %s", strings.Join(e.Attempted, ", "), e.LastError)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Err }

func (e *AllProvidersFailedError) TypeName() string { return "AllProvidersFailedError" }

// UnknownError wraps a provider failure that carries no recognised type.
type UnknownError struct {
	Provider string
	Err      error
}

func (e *UnknownError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s failed", e.Provider)
	}
	return e.Err.Error()
}

func (e *UnknownError) Unwrap() error { return e.Err }

func (e *UnknownError) TypeName() string { return "UnknownError" }

// AsProviderFailure returns err unchanged when it already names its type and
// wraps it in an UnknownError otherwise.
func AsProviderFailure(providerName string, err error) error {
	if err == nil {
		return nil
	}
	var tn typeNamer
	if errors.As(err, &tn) {
		return err
	}
	return &UnknownError{Provider: providerName, Err: err}
}

// CircuitOpenError means no provider is currently admitted by the circuit breaker.
type CircuitOpenError struct{}

func (e *CircuitOpenError) Error() string { return "all providers in circuit breaker state" }

func (e *CircuitOpenError) TypeName() string { return "CircuitOpenError" }

// AdvisorUnavailableError means the advisory LLM endpoint could not be reached.
type AdvisorUnavailableError struct {
	URL string
	Err error
}

func (e *AdvisorUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisor unavailable at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("advisor unavailable at %s", e.URL)
}

func (e *AdvisorUnavailableError) Unwrap() error { return e.Err }

func (e *AdvisorUnavailableError) TypeName() string { return "AdvisorUnavailableError" }

// RateLimitError means a provider refused work because of quota or throttling.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider %s rate limited", e.Provider)
}

func (e *RateLimitError) TypeName() string { return "RateLimitError" }

// ValidationError means the task itself is malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) TypeName() string { return "ValidationError" }

// ParseError means provider output could not be interpreted.
type ParseError struct {
	Provider string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse output of %s: %s", e.Provider, e.Reason)
}

func (e *ParseError) TypeName() string { return "ParseError" }

// NotFoundError means a named resource (provider binary, work dir) does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Resource) }

func (e *NotFoundError) TypeName() string { return "NotFoundError" }

// ProviderError wraps a provider-specific failure that a different provider may not hit.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) TypeName() string { return "ProviderError" }

type typeNamer interface {
	TypeName() string
}

// ErrorTypeName returns the classification key of err. The first error in the
// unwrap chain that names itself wins; otherwise the Go type name is used.
func ErrorTypeName(err error) string {
	if err == nil {
		return ""
	}
	var tn typeNamer
	if errors.As(err, &tn) {
		return tn.TypeName()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
