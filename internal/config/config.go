// Package config loads lectern.yaml and LECTERN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
)

// Config is the full application configuration.
type Config struct {
	// User owns the lectures this process works on.
	User string `mapstructure:"user" validate:"required"`

	LLM        llm.Config       `mapstructure:"llm"`
	Store      StoreConfig      `mapstructure:"store"`
	Log        logging.Config   `mapstructure:"log"`
	Curriculum CurriculumConfig `mapstructure:"curriculum"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// StoreConfig selects the lecture store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite badger redis"`

	// Path is the SQLite file or Badger directory. Empty means the XDG
	// data directory.
	Path string `mapstructure:"path"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
}

// CurriculumConfig holds orchestration settings.
type CurriculumConfig struct {
	UnlockPolicy        string  `mapstructure:"unlock_policy" validate:"oneof=open progressive"`
	PrefetchConcurrency int     `mapstructure:"prefetch_concurrency" validate:"gte=1,lte=16"`
	TestPassPercentage  float64 `mapstructure:"test_pass_percentage" validate:"gte=0,lte=100"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// Policy returns the configured unlock policy.
func (c CurriculumConfig) Policy() curriculum.UnlockPolicy {
	return curriculum.UnlockPolicy(c.UnlockPolicy)
}

// Default returns the built-in configuration.
func Default() Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "default"
	}
	return Config{
		User:  user,
		LLM:   llm.DefaultConfig(),
		Store: StoreConfig{Driver: "sqlite"},
		Log:   logging.Config{Level: "info", Format: "console", MaxSizeMB: 10, MaxBackups: 3},
		Curriculum: CurriculumConfig{
			UnlockPolicy:        string(curriculum.UnlockOpen),
			PrefetchConcurrency: 3,
			TestPassPercentage:  70,
		},
	}
}

// Load reads configuration from path, or from lectern.yaml in the working
// directory and $XDG_CONFIG_HOME/lectern when path is empty. A missing
// default file is not an error. When the selected provider has no API key,
// the vendors' standard *_API_KEY variables are probed.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("lectern")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("LECTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !cfg.LLM.HasKey() {
		if discovered, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = discovered
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lectern"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lectern"), nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("user", d.User)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)
	v.SetDefault("llm.rate_limit.requests_per_minute", d.LLM.RateLimit.RequestsPerMinute)
	v.SetDefault("llm.rate_limit.burst", d.LLM.RateLimit.Burst)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", "")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)

	v.SetDefault("curriculum.unlock_policy", d.Curriculum.UnlockPolicy)
	v.SetDefault("curriculum.prefetch_concurrency", d.Curriculum.PrefetchConcurrency)
	v.SetDefault("curriculum.test_pass_percentage", d.Curriculum.TestPassPercentage)

	v.SetDefault("metrics.addr", "")
}
