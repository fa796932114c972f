package cli

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/taskrelay/internal/control"
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/health"
	"github.com/vietddude/taskrelay/internal/recovery"
)

func TestPrintRunReport_Success(t *testing.T) {
	var buf bytes.Buffer
	printRunReport(&buf, &control.RunReport{Execution: &domain.ExecutionResult{
		RunID:    "run-1",
		Success:  true,
		Provider: "Vibe",
		Result:   &domain.TaskResult{Success: true, Output: "patched 3 files"},
		FallbackLog: []domain.FallbackLogEntry{
			{Provider: "Codex", Type: domain.FailureTypeTimeout, Error: "timed out after 30s"},
			{Provider: "Claude", Type: domain.FailureTypeExecution, Error: "bad input"},
		},
	}})

	out := buf.String()
	for _, want := range []string{"Task completed by Vibe", "patched 3 files", "Codex", "timeout", "Claude", "execution"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintRunReport_FailureWithRecovery(t *testing.T) {
	var buf bytes.Buffer
	printRunReport(&buf, &control.RunReport{
		Execution: &domain.ExecutionResult{RunID: "run-2", Error: "all providers failed"},
		Recovery: &recovery.Outcome{
			Strategy:       recovery.StrategyFailFast,
			Classification: recovery.Classification{ErrorType: "AllProvidersFailedError", Severity: recovery.SeverityHigh},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "Task failed (run run-2)") || !strings.Contains(out, "Recovery: fail_fast") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	used := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	printStats(&buf, []string{"codex", "claude"}, map[string]domain.ProviderStats{
		"codex": {Attempts: 4, Successes: 3, Failures: 1, LastUsed: used},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "75%") || !strings.Contains(lines[1], "2026-04-01T09:00:00Z") {
		t.Errorf("unexpected codex row: %s", lines[1])
	}
	if !strings.Contains(lines[2], "never") {
		t.Errorf("expected never-used claude row: %s", lines[2])
	}
}

func TestPrintHealth(t *testing.T) {
	var buf bytes.Buffer
	printHealth(&buf, []string{"codex", "vibe"}, &health.HealthReport{
		SystemStatus: health.StatusDegraded,
		Providers: map[string]health.ProviderHealth{
			"codex": {Name: "codex", Status: health.StatusHealthy, Reachable: true},
			"vibe":  {Name: "vibe", Status: health.StatusDegraded, Reachable: true, CircuitOpen: true, ConsecutiveFailures: 3},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "open") || !strings.Contains(out, "System: degraded") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintRules(t *testing.T) {
	var buf bytes.Buffer
	printRules(&buf, recovery.DefaultRules())
	if !strings.Contains(buf.String(), "continue_without_ollama") {
		t.Errorf("expected default rules in output:\n%s", buf.String())
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"debug", false, slog.LevelDebug},
		{"warn", false, slog.LevelWarn},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := logLevel(tt.level, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %t) = %s, want %s", tt.level, tt.debug, got, tt.want)
		}
	}
}
