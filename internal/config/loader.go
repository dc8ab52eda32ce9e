package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/viper"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads configuration from the given YAML file, applies defaults for
// unset keys, interpolates ${VAR} references from the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return finish(v)
}

// LoadWithDefaults behaves like Load but falls back to the built-in
// defaults when the file does not exist or no path is given.
func LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func applyDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("pipeline.max_retries", def.Pipeline.MaxRetries)
	v.SetDefault("pipeline.base_delay", def.Pipeline.BaseDelay)
	v.SetDefault("pipeline.phase_timeout", def.Pipeline.PhaseTimeout)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.APIKey = interpolateEnv(cfg.LLM.APIKey)
	cfg.Database.Path = interpolateEnv(cfg.Database.Path)
	cfg.Tracing.Endpoint = interpolateEnv(cfg.Tracing.Endpoint)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// interpolateEnv replaces ${VAR} references with environment values.
// Unset variables resolve to the empty string.
func interpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
