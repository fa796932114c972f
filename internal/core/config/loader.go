package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/taskrelay/internal/infra/advisor"
	"github.com/vietddude/taskrelay/internal/infra/routing"
	"github.com/vietddude/taskrelay/internal/recovery"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables and
// applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if len(cfg.Order) == 0 {
		for _, p := range cfg.Providers {
			cfg.Order = append(cfg.Order, p.Name)
		}
	}

	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = string(routing.ModeCircuit)
	}

	if cfg.CircuitBreaker.FailureThreshold == 0 {
		cfg.CircuitBreaker.FailureThreshold = routing.DefaultFailureThreshold
	}
	if cfg.CircuitBreaker.ResetTimeout == 0 {
		cfg.CircuitBreaker.ResetTimeout = routing.DefaultResetTimeout
	}

	if cfg.Advisor.URL == "" {
		cfg.Advisor.URL = advisor.DefaultOllamaURL
	}
	if cfg.Advisor.Model == "" {
		cfg.Advisor.Model = advisor.DefaultOllamaModel
	}
	if cfg.Advisor.CacheTTL == 0 {
		cfg.Advisor.CacheTTL = 30 * time.Minute
	}
	if cfg.Advisor.Timeout == 0 {
		cfg.Advisor.Timeout = 30 * time.Second
	}

	if cfg.Recovery.MaxRetries == 0 {
		cfg.Recovery.MaxRetries = recovery.DefaultMaxRetries
	}
	if cfg.Recovery.RetryDelay == 0 {
		cfg.Recovery.RetryDelay = recovery.DefaultRetryDelay
	}
	if cfg.Recovery.InitialDelay == 0 {
		cfg.Recovery.InitialDelay = recovery.DefaultInitialDelay
	}
	if cfg.Recovery.MaxDelay == 0 {
		cfg.Recovery.MaxDelay = recovery.DefaultMaxDelay
	}
}

// Validate checks the configuration for errors the loader cannot default.
func (cfg *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for i, p := range cfg.Providers {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if p.Command == "" {
			return fmt.Errorf("provider %s: command is required", p.Name)
		}
		if seen[name] {
			return fmt.Errorf("provider %s: duplicate name", p.Name)
		}
		seen[name] = true
	}

	if _, err := routing.ParseMode(cfg.Execution.Mode); err != nil {
		return fmt.Errorf("execution.mode: %w", err)
	}
	if cfg.Execution.MaxRetries < 0 {
		return fmt.Errorf("execution.max_retries must not be negative")
	}

	for i, r := range cfg.Recovery.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("recovery.rules[%d]: %w", i, err)
		}
	}
	return nil
}
