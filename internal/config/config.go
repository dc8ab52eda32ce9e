package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the clinical bridge.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Database DBConfig       `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	// APIKey supports ${VAR} interpolation; leave empty to use the
	// provider's environment variable.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// PipelineConfig contains the orchestration tunables.
type PipelineConfig struct {
	// MaxRetries is the number of retry attempts after the first
	// collaborator call.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// BaseDelay is the delay before the first retry; it doubles on each
	// subsequent attempt.
	BaseDelay time.Duration `mapstructure:"base_delay" yaml:"base_delay"`

	// PhaseTimeout bounds each collaborator invocation. A timed-out
	// invocation follows the same retry and failure path as an
	// agent-level error.
	PhaseTimeout time.Duration `mapstructure:"phase_timeout" yaml:"phase_timeout"`

	// SkipPriorAuth skips the prior authorization phase for every run.
	SkipPriorAuth bool `mapstructure:"skip_prior_auth" yaml:"skip_prior_auth"`
}

// DBConfig contains the run store configuration.
type DBConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TracingConfig contains distributed tracing configuration. Spans are
// exported over OTLP gRPC to Endpoint when Enabled is true.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS on the collector connection. Only for local
	// collectors.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must be non-negative, got %d", c.Pipeline.MaxRetries)
	}
	if c.Pipeline.BaseDelay <= 0 {
		return fmt.Errorf("pipeline.base_delay must be positive, got %s", c.Pipeline.BaseDelay)
	}
	if c.Pipeline.PhaseTimeout <= 0 {
		return fmt.Errorf("pipeline.phase_timeout must be positive, got %s", c.Pipeline.PhaseTimeout)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}
