// Package recovery classifies errors and applies recovery strategies.
package recovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// Class says whether an error is worth recovering from.
type Class string

const (
	ClassRecoverable Class = "recoverable"
	ClassCritical    Class = "critical"
)

// Severity ranks the impact of an error.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Strategy names how the manager responds to a classified error.
type Strategy string

const (
	StrategyRetryWithFallback      Strategy = "retry_with_fallback"
	StrategyRetryWithBackoff       Strategy = "retry_with_backoff"
	StrategyRetryOnce              Strategy = "retry_once"
	StrategySkipAndContinue        Strategy = "skip_and_continue"
	StrategyFailFast               Strategy = "fail_fast"
	StrategyFallbackToNextProvider Strategy = "fallback_to_next_provider"
	StrategyContinueWithoutOllama  Strategy = "continue_without_ollama"
)

// ErrInvalidRule is returned by AddRule for incomplete or unknown rule values.
var ErrInvalidRule = errors.New("invalid classification rule")

// Rule maps an error type name to its classification.
type Rule struct {
	ErrorType string   `yaml:"error_type"`
	Class     Class    `yaml:"classification"`
	Severity  Severity `yaml:"severity"`
	Strategy  Strategy `yaml:"strategy"`
}

// Classification is the result of classifying one error.
type Classification struct {
	ErrorType   string   `json:"error_type"`
	Class       Class    `json:"classification"`
	Severity    Severity `json:"severity"`
	Strategy    Strategy `json:"strategy"`
	Recoverable bool     `json:"recoverable"`
}

// DefaultRule applies to error types without a rule.
var DefaultRule = Rule{
	Class:    ClassCritical,
	Severity: SeverityHigh,
	Strategy: StrategyFailFast,
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{"TimeoutError", ClassRecoverable, SeverityMedium, StrategyRetryWithBackoff},
		{"ExecutionError", ClassRecoverable, SeverityMedium, StrategyRetryWithFallback},
		{"AllProvidersFailedError", ClassCritical, SeverityHigh, StrategyFailFast},
		{"CircuitOpenError", ClassRecoverable, SeverityMedium, StrategySkipAndContinue},
		{"AdvisorUnavailableError", ClassRecoverable, SeverityLow, StrategyContinueWithoutOllama},
		{"RateLimitError", ClassRecoverable, SeverityMedium, StrategyRetryWithBackoff},
		{"ValidationError", ClassCritical, SeverityHigh, StrategyFailFast},
		{"NotFoundError", ClassRecoverable, SeverityLow, StrategySkipAndContinue},
		{"ParseError", ClassRecoverable, SeverityLow, StrategyRetryOnce},
		{"ProviderError", ClassRecoverable, SeverityMedium, StrategyFallbackToNextProvider},
		{"UnknownError", ClassCritical, SeverityHigh, StrategyFailFast},
	}
}

// Classifier looks errors up in an ordered rule table keyed by type name.
type Classifier struct {
	mu     sync.RWMutex
	rules  []Rule
	index  map[string]int
	custom map[string]bool
}

// NewClassifier creates a classifier loaded with DefaultRules.
func NewClassifier() *Classifier {
	c := &Classifier{index: make(map[string]int), custom: make(map[string]bool)}
	for _, r := range DefaultRules() {
		c.upsert(r)
	}
	return c
}

// Classify returns the classification for err's type name.
func (c *Classifier) Classify(err error) Classification {
	typeName := domain.ErrorTypeName(err)

	c.mu.RLock()
	rule := DefaultRule
	if i, ok := c.index[typeName]; ok {
		rule = c.rules[i]
	}
	c.mu.RUnlock()

	return Classification{
		ErrorType:   typeName,
		Class:       rule.Class,
		Severity:    rule.Severity,
		Strategy:    rule.Strategy,
		Recoverable: rule.Class == ClassRecoverable,
	}
}

// AddRule validates a rule and inserts it, replacing any rule for the same type.
func (c *Classifier) AddRule(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	c.upsert(r)
	c.mu.Lock()
	c.custom[r.ErrorType] = true
	c.mu.Unlock()
	return nil
}

// Customized reports whether the rule for typeName was added with AddRule
// rather than coming from DefaultRules.
func (c *Classifier) Customized(typeName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.custom[typeName]
}

// Rules returns a copy of the rule table in order.
func (c *Classifier) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Rule(nil), c.rules...)
}

func (c *Classifier) upsert(r Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[r.ErrorType]; ok {
		c.rules[i] = r
		return
	}
	c.index[r.ErrorType] = len(c.rules)
	c.rules = append(c.rules, r)
}

// Validate checks that all four fields are present and known.
func (r Rule) Validate() error {
	if r.ErrorType == "" {
		return fmt.Errorf("%w: missing error type", ErrInvalidRule)
	}
	switch r.Class {
	case ClassRecoverable, ClassCritical:
	case "":
		return fmt.Errorf("%w: missing classification for %s", ErrInvalidRule, r.ErrorType)
	default:
		return fmt.Errorf("%w: unknown classification %q", ErrInvalidRule, r.Class)
	}
	switch r.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	case "":
		return fmt.Errorf("%w: missing severity for %s", ErrInvalidRule, r.ErrorType)
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, r.Severity)
	}
	if r.Strategy == "" {
		return fmt.Errorf("%w: missing strategy for %s", ErrInvalidRule, r.ErrorType)
	}
	if !r.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidRule, r.Strategy)
	}
	return nil
}

// Valid reports whether s is one of the seven known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRetryWithFallback, StrategyRetryWithBackoff, StrategyRetryOnce,
		StrategySkipAndContinue, StrategyFailFast, StrategyFallbackToNextProvider,
		StrategyContinueWithoutOllama:
		return true
	}
	return false
}
