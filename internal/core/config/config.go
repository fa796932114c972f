package config

import (
	"time"

	redisclient "github.com/vietddude/taskrelay/internal/infra/redis"
	"github.com/vietddude/taskrelay/internal/infra/storage/postgres"
	"github.com/vietddude/taskrelay/internal/recovery"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Providers      []ProviderConfig     `yaml:"providers"`
	Order          []string             `yaml:"order"`
	Execution      ExecutionConfig      `yaml:"execution"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Advisor        AdvisorConfig        `yaml:"advisor"`
	Recovery       RecoveryConfig       `yaml:"recovery"`
	Redis          redisclient.Config   `yaml:"redis"`
	Database       postgres.Config      `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ProviderConfig describes a CLI tool invoked as a provider.
type ProviderConfig struct {
	Name       string            `yaml:"name"`
	Aliases    []string          `yaml:"aliases"`
	Command    string            `yaml:"command"`
	Args       []string          `yaml:"args"`        // "{prompt}" is replaced by the rendered task
	HealthArgs []string          `yaml:"health_args"` // empty = only check the binary exists
	Timeout    time.Duration     `yaml:"timeout"`
	Env        map[string]string `yaml:"env"`
}

// ExecutionConfig holds per-run defaults.
type ExecutionConfig struct {
	Mode       string `yaml:"mode"` // fallback, circuit, best, advised
	MaxRetries int    `yaml:"max_retries"`
	WorkDir    string `yaml:"work_dir"`
}

// CircuitBreakerConfig holds circuit breaker thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// AdvisorConfig holds LLM advisor settings.
type AdvisorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RecoveryConfig holds recovery defaults and extra classification rules.
type RecoveryConfig struct {
	MaxRetries   int             `yaml:"max_retries"`
	RetryDelay   time.Duration   `yaml:"retry_delay"`
	InitialDelay time.Duration   `yaml:"initial_delay"`
	MaxDelay     time.Duration   `yaml:"max_delay"`
	Rules        []recovery.Rule `yaml:"rules"`
}
