// Package config handles configuration loading for squad. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/squad/internal/aggregator"
)

// Config holds all configuration for squad.
type Config struct {
	Anthropic   AnthropicConfig   `mapstructure:"anthropic"`
	Bedrock     BedrockConfig     `mapstructure:"bedrock"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Store       StoreConfig       `mapstructure:"store"`
	Templates   TemplatesConfig   `mapstructure:"templates"`
	LogPath     string            `mapstructure:"log_path"`
}

// AnthropicConfig holds direct Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BedrockConfig holds AWS Bedrock provider settings.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// SchedulerConfig holds execution tuning.
type SchedulerConfig struct {
	WorkerLimit    int           `mapstructure:"worker_limit"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	// TierTimeouts overrides the attempt deadline per tier, keyed by
	// tier name (cheap, capable, premium).
	TierTimeouts     map[string]time.Duration `mapstructure:"tier_timeouts"`
	RefinementRounds int                      `mapstructure:"refinement_rounds"`
}

// BreakerConfig holds circuit-breaker tuning.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	MaxCooldown      time.Duration `mapstructure:"max_cooldown"`
}

// ProvidersConfig orders the providers tried per tier.
type ProvidersConfig struct {
	Cheap   []string `mapstructure:"cheap"`
	Capable []string `mapstructure:"capable"`
	Premium []string `mapstructure:"premium"`
}

// TierRates holds the per-million-token dollar rates for one tier.
type TierRates struct {
	InputPerMTok  float64 `mapstructure:"input_per_mtok"`
	OutputPerMTok float64 `mapstructure:"output_per_mtok"`
}

// PricingConfig overrides cost rates per tier, keyed by tier name.
// Tiers not listed keep their built-in rates.
type PricingConfig map[string]TierRates

// AggregationConfig tunes report scoring. An empty category list lets
// the engine derive categories from the executed template's roles.
type AggregationConfig struct {
	Epsilon    float64                     `mapstructure:"epsilon"`
	Categories []aggregator.CategoryConfig `mapstructure:"categories"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TemplatesConfig holds the template directory location.
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// getUserConfigDir returns the XDG config directory for squad.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "squad")
}

// findProjectConfig walks up from the working directory looking for a
// .squad.yaml override.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".squad.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// setDefaults installs the built-in defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.worker_limit", 4)
	v.SetDefault("scheduler.attempt_timeout", 2*time.Minute)
	v.SetDefault("scheduler.refinement_rounds", 3)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.window", time.Minute)
	v.SetDefault("breaker.cooldown", 30*time.Second)
	v.SetDefault("breaker.max_cooldown", 8*time.Minute)

	v.SetDefault("providers.cheap", []string{"anthropic"})
	v.SetDefault("providers.capable", []string{"anthropic"})
	v.SetDefault("providers.premium", []string{"anthropic"})

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "us-west-2")
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY, SQUAD_*)
//  2. Project config (.squad.yaml in current directory or a parent)
//  3. User config (~/.config/squad/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SQUAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}"))
	}
	return s
}
