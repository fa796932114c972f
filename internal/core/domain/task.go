package domain

import "time"

// Task is a unit of development work handed to a provider.
type Task struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        string            `json:"type,omitempty"`
	Files       []string          `json:"files,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ExecContext carries per-execution settings forwarded to providers.
type ExecContext struct {
	WorkDir    string
	MaxRetries int // forwarded to the provider, not interpreted by the executor
	Timeout    time.Duration
	Env        map[string]string
}

// TaskResult is what a provider returns on success.
type TaskResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Raw     any    `json:"raw,omitempty"`
}
