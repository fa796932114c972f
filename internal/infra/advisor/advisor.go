// Package advisor asks an LLM which provider should handle a task.
//
// Advice is optional: every failure path falls back to statistics-based
// selection so execution is never blocked on the advisory backend.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/metrics"
	"github.com/vietddude/taskrelay/internal/infra/provider"
	"github.com/vietddude/taskrelay/internal/infra/routing"
)

// ErrAdvisorDisabled is returned by Recommend when advice is turned off.
var ErrAdvisorDisabled = errors.New("advisor disabled")

// AdviceRequest is sent to the advisory backend.
type AdviceRequest struct {
	TaskDescription    string
	CandidateProviders []string
	Temperature        float64
}

// AdviceResponse is the backend's raw reply.
type AdviceResponse struct {
	Text     string
	Model    string
	Duration time.Duration
}

// Backend is an advisory LLM endpoint.
type Backend interface {
	// Available is a cheap reachability probe.
	Available(ctx context.Context) bool
	Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error)
}

// Recommendation is a parsed provider suggestion.
type Recommendation struct {
	Provider     string    `json:"provider"`
	Reasoning    string    `json:"reasoning"`
	Alternatives []string  `json:"alternatives"`
	Confidence   int       `json:"confidence"`
	Model        string    `json:"model,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Cached       bool      `json:"-"`
}

// Config controls the selector.
type Config struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// Selector recommends providers using an advisory backend, with caching and
// a statistics-based fallback.
type Selector struct {
	cfg      Config
	backend  Backend
	cache    Cache
	registry *provider.Registry
	fallback *routing.ScoredSelector
	now      func() time.Time
	log      *slog.Logger
}

// NewSelector creates a selector. cache may be nil to disable caching.
func NewSelector(
	cfg Config,
	backend Backend,
	cache Cache,
	registry *provider.Registry,
	fallback *routing.ScoredSelector,
) *Selector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Selector{
		cfg:      cfg,
		backend:  backend,
		cache:    cache,
		registry: registry,
		fallback: fallback,
		now:      time.Now,
		log:      slog.Default().With("component", "advisor"),
	}
}

// Recommend asks the backend for a provider for task among candidates.
func (s *Selector) Recommend(
	ctx context.Context,
	task domain.Task,
	candidates []string,
) (*Recommendation, error) {
	if !s.cfg.Enabled || s.backend == nil {
		return nil, ErrAdvisorDisabled
	}
	if !s.backend.Available(ctx) {
		return nil, &domain.AdvisorUnavailableError{URL: s.cfg.URL}
	}

	key := CacheKey(task.ID, candidates)
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("Advice cache read failed", "error", err)
		} else if ok {
			metrics.AdviceRequests.WithLabelValues("hit").Inc()
			rec.Cached = true
			return rec, nil
		}
	}
	metrics.AdviceRequests.WithLabelValues("miss").Inc()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.backend.Advise(callCtx, AdviceRequest{
		TaskDescription:    DescribeTask(task),
		CandidateProviders: candidates,
		Temperature:        0,
	})
	if err != nil {
		return nil, &domain.AdvisorUnavailableError{URL: s.cfg.URL, Err: err}
	}

	rec, err := ParseRecommendation(resp.Text)
	if err != nil {
		s.log.Debug("Unparseable advice", "response", resp.Text)
		return nil, fmt.Errorf("parse advice from %s: %w", resp.Model, err)
	}
	rec.Model = resp.Model
	rec.Timestamp = s.now()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rec); err != nil {
			s.log.Warn("Advice cache write failed", "error", err)
		}
	}

	s.log.Info("Received provider advice",
		"task", task.ID,
		"provider", rec.Provider,
		"confidence", rec.Confidence,
		"duration", resp.Duration,
	)
	return rec, nil
}

// BestProvider returns the advised provider if it is configured locally,
// otherwise the scored selector's choice.
func (s *Selector) BestProvider(ctx context.Context, task domain.Task) (string, bool) {
	candidates := s.candidates()

	rec, err := s.Recommend(ctx, task, candidates)
	if err == nil {
		name := s.registry.Normalize(rec.Provider)
		if _, ok := s.registry.Get(name); ok {
			return name, true
		}
		s.log.Warn("Advisor recommended unconfigured provider", "provider", rec.Provider)
	} else if !errors.Is(err, ErrAdvisorDisabled) {
		metrics.AdviceRequests.WithLabelValues("error").Inc()
		s.log.Warn("Provider advice unavailable, using scored selection", "error", err)
	}

	metrics.AdviceRequests.WithLabelValues("fallback").Inc()
	if s.fallback == nil {
		return "", false
	}
	return s.fallback.Best()
}

func (s *Selector) candidates() []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range s.registry.Order() {
		name := s.registry.Normalize(raw)
		if _, ok := s.registry.Get(name); ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// DescribeTask renders a task as a natural-language description for the advisor.
func DescribeTask(task domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Title)
	if task.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", task.Type)
	}
	if task.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", task.Priority)
	}
	if task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
	}
	if len(task.Files) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(task.Files, ", "))
	}
	return strings.TrimSpace(b.String())
}
