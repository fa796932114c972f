package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vietddude/taskrelay/internal/control"
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/health"
	"github.com/vietddude/taskrelay/internal/recovery"
)

func printRunReport(out io.Writer, report *control.RunReport) {
	if report == nil || report.Execution == nil {
		_, _ = fmt.Fprintln(out, "No execution result")
		return
	}
	res := report.Execution

	if res.Success {
		_, _ = fmt.Fprintf(out, "Task completed by %s in %s (run %s)\n",
			res.Provider, res.ExecutionTime.Round(time.Millisecond), res.RunID)
		if res.Result != nil && res.Result.Output != "" {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, res.Result.Output)
		}
	} else {
		_, _ = fmt.Fprintf(out, "Task failed (run %s): %s\n", res.RunID, res.Error)
	}

	if len(res.FallbackLog) > 0 {
		_, _ = fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "PROVIDER\tTYPE\tERROR")
		for _, e := range res.FallbackLog {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Provider, e.Type, e.Error)
		}
		_ = w.Flush()
	}

	if rec := report.Recovery; rec != nil {
		_, _ = fmt.Fprintf(out, "\nRecovery: %s (%s, %s) attempts=%d success=%t\n",
			rec.Strategy, rec.Classification.ErrorType, rec.Classification.Severity, rec.Attempts, rec.Success)
	}
}

func printStats(out io.Writer, names []string, stats map[string]domain.ProviderStats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tATTEMPTS\tSUCCESSES\tFAILURES\tSTREAK\tRATE\tLAST USED")
	for _, name := range names {
		s := stats[name]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.0f%%\t%s\n",
			name, s.Attempts, s.Successes, s.Failures, s.ConsecutiveFailures,
			s.SuccessRate()*100, formatTime(s.LastUsed))
	}
	_ = w.Flush()
}

func printHealth(out io.Writer, names []string, report *health.HealthReport) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tSTATUS\tREACHABLE\tCIRCUIT\tSTREAK")
	for _, name := range names {
		p, ok := report.Providers[name]
		if !ok {
			continue
		}
		circuit := "closed"
		if p.CircuitOpen {
			circuit = "open"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d\n", name, p.Status, p.Reachable, circuit, p.ConsecutiveFailures)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nSystem: %s\n", report.SystemStatus)
}

func printRules(out io.Writer, rules []recovery.Rule) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ERROR TYPE\tCLASS\tSEVERITY\tSTRATEGY")
	for _, r := range rules {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ErrorType, r.Class, r.Severity, r.Strategy)
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
