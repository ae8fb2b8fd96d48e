// Package config loads AGCodex core configuration from
// <workspace>/.agcodex/config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all AGCodex core configuration.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Index        IndexConfig        `yaml:"index"`
	Mode         ModeConfig         `yaml:"mode"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OrchestratorConfig tunes plan execution.
type OrchestratorConfig struct {
	MaxConcurrency          int64  `yaml:"max_concurrency"`
	AgentTimeout            string `yaml:"agent_timeout"`
	MaxRetries              int    `yaml:"max_retries"`
	RetryBackoff            string `yaml:"retry_backoff"`
	CircuitBreakerThreshold int    `yaml:"circuit_breaker_threshold"`
	CircuitBreakerReset     string `yaml:"circuit_breaker_reset"`
}

// IndexConfig tunes the parser pool, parse cache, and symbol snapshot.
type IndexConfig struct {
	ParseCacheSize int    `yaml:"parse_cache_size"`
	ParserPoolCap  int    `yaml:"parser_pool_cap"`
	SymbolSnapshot string `yaml:"symbol_snapshot"`
}

// ModeConfig sets the starting operating mode and its UI affordances.
type ModeConfig struct {
	Default          string `yaml:"default"`
	CycleKey         string `yaml:"cycle_key"`
	ReviewWriteLimit int    `yaml:"review_write_limit"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxConcurrency:          8,
			AgentTimeout:            "5m",
			MaxRetries:              2,
			RetryBackoff:            "200ms",
			CircuitBreakerThreshold: 3,
			CircuitBreakerReset:     "30s",
		},
		Index: IndexConfig{
			ParseCacheSize: 256,
			ParserPoolCap:  4,
			SymbolSnapshot: filepath.Join(".agcodex", "index.db"),
		},
		Mode: ModeConfig{
			Default:          "plan",
			CycleKey:         "Shift+Tab",
			ReviewWriteLimit: 10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config.yaml from the workspace's .agcodex directory. A missing
// file yields the defaults; a malformed file is an error.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".agcodex", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies AGCODEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGCODEX_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Orchestrator.MaxConcurrency = n
		}
	}
	if v := os.Getenv("AGCODEX_AGENT_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Orchestrator.AgentTimeout = v
		}
	}
	if v := os.Getenv("AGCODEX_MODE"); v != "" {
		c.Mode.Default = v
	}
	if v := os.Getenv("AGCODEX_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Orchestrator.MaxConcurrency < 1 {
		return fmt.Errorf("orchestrator.max_concurrency must be >= 1, got %d", c.Orchestrator.MaxConcurrency)
	}
	if c.Index.ParseCacheSize < 1 {
		return fmt.Errorf("index.parse_cache_size must be >= 1, got %d", c.Index.ParseCacheSize)
	}
	if c.Index.ParserPoolCap < 1 {
		return fmt.Errorf("index.parser_pool_cap must be >= 1, got %d", c.Index.ParserPoolCap)
	}
	if c.Mode.ReviewWriteLimit < 1 {
		return fmt.Errorf("mode.review_write_limit must be >= 1, got %d", c.Mode.ReviewWriteLimit)
	}
	if _, err := c.AgentTimeout(); err != nil {
		return err
	}
	if _, err := c.RetryBackoff(); err != nil {
		return err
	}
	if _, err := c.CircuitBreakerReset(); err != nil {
		return err
	}
	return nil
}

// AgentTimeout parses the orchestrator agent timeout.
func (c *Config) AgentTimeout() (time.Duration, error) {
	return parseDuration("orchestrator.agent_timeout", c.Orchestrator.AgentTimeout, 5*time.Minute)
}

// RetryBackoff parses the initial retry backoff.
func (c *Config) RetryBackoff() (time.Duration, error) {
	return parseDuration("orchestrator.retry_backoff", c.Orchestrator.RetryBackoff, 200*time.Millisecond)
}

// CircuitBreakerReset parses the breaker reset window.
func (c *Config) CircuitBreakerReset() (time.Duration, error) {
	return parseDuration("orchestrator.circuit_breaker_reset", c.Orchestrator.CircuitBreakerReset, 30*time.Second)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}
