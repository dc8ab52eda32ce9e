package config

import "time"

// Default returns the built-in configuration used when no config file is
// present. Values mirror the environment tunables the pipeline requires:
// retry attempts, base retry delay, and the prior-auth skip flag.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
		},
		Pipeline: PipelineConfig{
			MaxRetries:   3,
			BaseDelay:    time.Second,
			PhaseTimeout: 120 * time.Second,
		},
		Database: DBConfig{
			Path: "clinbridge.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
