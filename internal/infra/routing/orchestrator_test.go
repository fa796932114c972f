package routing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/provider"
)

// =============================================================================
// ScoredSelector
// =============================================================================

func record(reg *provider.Registry, name string, successes, failures int) {
	for i := 0; i < successes; i++ {
		reg.BeginAttempt(name)
		reg.RecordSuccess(name)
	}
	for i := 0; i < failures; i++ {
		reg.BeginAttempt(name)
		reg.RecordFailure(name)
	}
}

func TestScoredSelector_PrefersHigherSuccessRate(t *testing.T) {
	reg := registryOf(&scripted{name: "B"}, &scripted{name: "A"})
	record(reg, "A", 8, 2)
	record(reg, "B", 3, 2)

	best, ok := NewScoredSelector(reg).Best()
	if !ok || best != "A" {
		t.Errorf("Best() = %q, %v; want A", best, ok)
	}
}

func TestScoredSelector_TieGoesToFirstInOrder(t *testing.T) {
	reg := registryOf(&scripted{name: "x"}, &scripted{name: "y"})
	best, _ := NewScoredSelector(reg).Best()
	if best != "x" {
		t.Errorf("Best() = %q, want x", best)
	}

	reg.SetOrder([]string{"y", "x"})
	best, _ = NewScoredSelector(reg).Best()
	if best != "y" {
		t.Errorf("Best() after reorder = %q, want y", best)
	}
}

func TestScoredSelector_RecencyBonus(t *testing.T) {
	withSuccess := domain.ProviderStats{Attempts: 2, Successes: 1, Failures: 1, LastSuccess: time.Now()}
	if got := Score(withSuccess); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Score = %f, want 0.6", got)
	}
	if got := Score(domain.ProviderStats{}); got != 0 {
		t.Errorf("Score of untried provider = %f, want 0", got)
	}
}

func TestScoredSelector_EmptyRegistry(t *testing.T) {
	if _, ok := NewScoredSelector(provider.NewRegistry()).Best(); ok {
		t.Error("empty registry must have no best provider")
	}
}

// =============================================================================
// Orchestrator
// =============================================================================

type fixedAdvisor struct {
	name string
	ok   bool
}

func (a fixedAdvisor) BestProvider(ctx context.Context, task domain.Task) (string, bool) {
	return a.name, a.ok
}

func TestOrchestrator_BestProviderRunsFirst(t *testing.T) {
	a := &scripted{name: "a", out: "A"}
	b := &scripted{name: "b", out: "B"}
	reg := registryOf(a, b)
	record(reg, "b", 5, 0)
	record(reg, "a", 1, 4)

	o := NewOrchestrator(reg, BreakerConfig{})
	res, err := o.ExecuteWithBestProvider(context.Background(), domain.Task{}, domain.ExecContext{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Provider != "b" || a.calls.Load() != 0 {
		t.Errorf("best provider should run first: %+v", res)
	}
}

func TestOrchestrator_BestProviderFallsBackToRest(t *testing.T) {
	a := &scripted{name: "a", out: "A"}
	b := &scripted{name: "b", err: errors.New("down")}
	reg := registryOf(a, b)
	record(reg, "b", 5, 0)

	res, err := NewOrchestrator(reg, BreakerConfig{}).ExecuteWithBestProvider(context.Background(), domain.Task{}, domain.ExecContext{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Provider != "a" || len(res.FallbackLog) != 1 || res.FallbackLog[0].Provider != "b" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestOrchestrator_AIAssisted(t *testing.T) {
	a := &scripted{name: "a", out: "A"}
	b := &scripted{name: "b", out: "B"}

	t.Run("uses advice", func(t *testing.T) {
		o := NewOrchestrator(registryOf(a, b), BreakerConfig{})
		o.SetAdvisor(fixedAdvisor{name: "b", ok: true})
		res, _ := o.ExecuteWithAIAssistedProvider(context.Background(), domain.Task{}, domain.ExecContext{})
		if res.Provider != "b" {
			t.Errorf("provider = %s, want b", res.Provider)
		}
	})

	t.Run("falls back to scored selection", func(t *testing.T) {
		reg := registryOf(a, b)
		record(reg, "b", 3, 0)
		o := NewOrchestrator(reg, BreakerConfig{})
		o.SetAdvisor(fixedAdvisor{ok: false})
		res, _ := o.ExecuteWithAIAssistedProvider(context.Background(), domain.Task{}, domain.ExecContext{})
		if res.Provider != "b" {
			t.Errorf("provider = %s, want b", res.Provider)
		}
	})

	t.Run("no advisor configured", func(t *testing.T) {
		o := NewOrchestrator(registryOf(a, b), BreakerConfig{})
		res, _ := o.ExecuteWithAIAssistedProvider(context.Background(), domain.Task{}, domain.ExecContext{})
		if !res.Success {
			t.Errorf("expected success: %+v", res)
		}
	})
}

func TestOrchestrator_HealthAndStats(t *testing.T) {
	up := &scripted{name: "up"}
	down := &scripted{name: "down", err: errors.New("x")}
	o := NewOrchestrator(registryOf(up, down), BreakerConfig{})

	health := o.CheckAllProviderHealth(context.Background())
	if !health["up"] || health["down"] {
		t.Errorf("unexpected health map: %v", health)
	}
	if up.calls.Load() != 0 {
		t.Error("health checks must not execute tasks")
	}

	_, _ = o.ExecuteWithFallback(context.Background(), domain.Task{}, domain.ExecContext{})
	if s := o.GetProviderStats()["up"]; s.Successes != 1 {
		t.Errorf("stats not recorded: %+v", s)
	}

	if err := o.ResetProviderStats("all"); err != nil {
		t.Fatal(err)
	}
	if s := o.GetProviderStats()["up"]; s.Attempts != 0 {
		t.Errorf("stats not reset: %+v", s)
	}
	if err := o.ResetProviderStats("ghost"); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeCircuit, false},
		{"fallback", ModeFallback, false},
		{"best", ModeBest, false},
		{"advised", ModeAdvised, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
