package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

const (
	// PromptPlaceholder is replaced in command args with the rendered task prompt.
	PromptPlaceholder = "{prompt}"

	defaultCommandTimeout = 10 * time.Minute
	healthCheckTimeout    = 10 * time.Second
	killGracePeriod       = 2 * time.Second
)

// CommandConfig describes how to invoke a CLI tool.
type CommandConfig struct {
	Name       string
	Command    string
	Args       []string
	HealthArgs []string
	Timeout    time.Duration
	Env        map[string]string
}

// CommandProvider runs a task by spawning a CLI tool as a subprocess.
type CommandProvider struct {
	cfg CommandConfig
	log *slog.Logger
}

// NewCommandProvider creates a subprocess-backed provider.
func NewCommandProvider(cfg CommandConfig) *CommandProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCommandTimeout
	}
	return &CommandProvider{
		cfg: cfg,
		log: slog.Default().With("component", "provider", "provider", cfg.Name),
	}
}

// GetName returns the provider's name.
func (p *CommandProvider) GetName() string {
	return p.cfg.Name
}

// Execute runs the command, re-running it on execution failures up to
// ec.MaxRetries additional times.
func (p *CommandProvider) Execute(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.TaskResult, error) {
	prompt := RenderPrompt(task)
	timeout := p.cfg.Timeout
	if ec.Timeout > 0 {
		timeout = ec.Timeout
	}

	var lastErr error
	for attempt := 0; attempt <= ec.MaxRetries; attempt++ {
		if attempt > 0 {
			p.log.Debug("Retrying command", "attempt", attempt, "error", lastErr)
		}

		out, err := p.run(ctx, p.cfg.Args, prompt, ec, timeout)
		if err == nil {
			return &domain.TaskResult{Success: true, Output: out}, nil
		}
		lastErr = err

		var execErr *domain.ExecutionError
		if !errors.As(err, &execErr) {
			return nil, err
		}
	}

	return nil, lastErr
}

// HealthCheck runs the configured health args, or checks that the binary is
// on PATH when none are configured.
func (p *CommandProvider) HealthCheck(ctx context.Context) bool {
	if len(p.cfg.HealthArgs) == 0 {
		_, err := exec.LookPath(p.cfg.Command)
		return err == nil
	}
	_, err := p.run(ctx, p.cfg.HealthArgs, "", domain.ExecContext{}, healthCheckTimeout)
	return err == nil
}

func (p *CommandProvider) run(
	ctx context.Context,
	args []string,
	prompt string,
	ec domain.ExecContext,
	timeout time.Duration,
) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = strings.ReplaceAll(a, PromptPlaceholder, prompt)
	}

	cmd := exec.CommandContext(runCtx, p.cfg.Command, expanded...)
	cmd.Dir = ec.WorkDir
	cmd.WaitDelay = killGracePeriod
	cmd.Env = mergeEnv(os.Environ(), p.cfg.Env, ec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	// Caller cancellation is not the provider's fault.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", &domain.TimeoutError{Provider: p.cfg.Name, Timeout: timeout}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return "", &domain.NotFoundError{Resource: fmt.Sprintf("command %q", p.cfg.Command)}
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if IsRateLimited(stderr.String()) {
		return "", &domain.RateLimitError{Provider: p.cfg.Name}
	}
	return "", &domain.ExecutionError{
		Provider: p.cfg.Name,
		Message:  fmt.Sprintf("%s failed: %v", p.cfg.Name, err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// RenderPrompt turns a task into the plain-text prompt given to CLI tools.
func RenderPrompt(task domain.Task) string {
	var b strings.Builder
	if task.Title != "" {
		b.WriteString(task.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(task.Description)
	if len(task.Files) > 0 {
		b.WriteString("\n\nFiles:\n")
		for _, f := range task.Files {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func mergeEnv(base []string, overlays ...map[string]string) []string {
	env := append([]string(nil), base...)
	for _, o := range overlays {
		for k, v := range o {
			env = append(env, k+"="+v)
		}
	}
	return env
}
