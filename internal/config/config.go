// Package config loads storyteller settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/talgya/storyteller/internal/chronicle"
	"github.com/talgya/storyteller/internal/journal"
	"github.com/talgya/storyteller/internal/llm"
	"github.com/talgya/storyteller/internal/nemesis"
)

type Config struct {
	LogLevel  string          `yaml:"log_level" env:"STORYTELLER_LOG_LEVEL"`
	Chronicle ChronicleConfig `yaml:"chronicle"`
	Nemesis   nemesis.Config  `yaml:"nemesis"`
	LLM       LLMConfig       `yaml:"llm"`
	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	Demo      DemoConfig      `yaml:"demo"`
}

type ChronicleConfig struct {
	Capacity int               `yaml:"capacity"`
	TopK     int               `yaml:"top_k"`
	Weights  chronicle.Weights `yaml:"weights"`
}

type LLMConfig struct {
	APIKey     string              `yaml:"-" env:"ANTHROPIC_API_KEY"`
	BaseURL    string              `yaml:"base_url"`
	Model      string              `yaml:"model"`
	DailyLimit int                 `yaml:"daily_limit" env:"STORYTELLER_DAILY_LIMIT"`
	Timeout    time.Duration       `yaml:"timeout"`
	MaxTokens  int                 `yaml:"max_tokens"`
	Fallbacks  map[string][]string `yaml:"fallbacks"`
}

type SessionConfig struct {
	ChoiceIntervalDays int `yaml:"choice_interval_days"`
	JournalCapacity    int `yaml:"journal_capacity"`
}

type StorageConfig struct {
	DB string `yaml:"db" env:"STORYTELLER_DB"`
}

// DemoConfig drives the bundled demo colony.
type DemoConfig struct {
	Seed        int64         `yaml:"seed" env:"STORYTELLER_SEED"`
	Colonists   int           `yaml:"colonists"`
	Days        int           `yaml:"days"`
	TicksPerDay int           `yaml:"ticks_per_day"`
	TickEvery   time.Duration `yaml:"tick_every"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Chronicle: ChronicleConfig{
			Capacity: chronicle.DefaultCapacity,
			TopK:     llm.DefaultTopK,
			Weights:  chronicle.DefaultWeights(),
		},
		Nemesis: nemesis.DefaultConfig(),
		LLM: LLMConfig{
			Model:      llm.DefaultModel,
			BaseURL:    llm.DefaultBaseURL,
			DailyLimit: llm.DefaultDailyLimit,
			Timeout:    llm.DefaultTimeout,
			MaxTokens:  llm.DefaultMaxTokens,
		},
		Session: SessionConfig{
			ChoiceIntervalDays: 7,
			JournalCapacity:    journal.DefaultCapacity,
		},
		Storage: StorageConfig{DB: "storyteller.db"},
		Demo: DemoConfig{
			Seed:        42,
			Colonists:   5,
			Days:        30,
			TicksPerDay: 24,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("loading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("loading config: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the core cannot run with.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Chronicle.Capacity <= 0 {
		return fmt.Errorf("chronicle capacity must be positive, got %d", c.Chronicle.Capacity)
	}
	if c.Chronicle.TopK <= 0 {
		return fmt.Errorf("chronicle top_k must be positive, got %d", c.Chronicle.TopK)
	}
	w := c.Chronicle.Weights
	if w.Keyword < 0 || w.Participant < 0 || w.Recency < 0 || w.Significance < 0 {
		return fmt.Errorf("chronicle weights must be non-negative")
	}
	if w.RecencyWindow <= 0 {
		return fmt.Errorf("chronicle recency_window must be positive, got %v", w.RecencyWindow)
	}
	if c.Nemesis.Capacity <= 0 || c.Nemesis.CooldownDays <= 0 || c.Nemesis.MaxEncounters <= 0 {
		return fmt.Errorf("nemesis limits must be positive: %+v", c.Nemesis)
	}
	if c.LLM.DailyLimit <= 0 {
		return fmt.Errorf("llm daily_limit must be positive, got %d", c.LLM.DailyLimit)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.LLM.Timeout)
	}
	for k := range c.LLM.Fallbacks {
		if _, ok := llm.LookupCategory(k); !ok {
			return fmt.Errorf("llm fallbacks: unknown category %q", k)
		}
	}
	if c.Session.ChoiceIntervalDays < 0 {
		return fmt.Errorf("session choice_interval_days must not be negative")
	}
	if c.Session.JournalCapacity <= 0 {
		return fmt.Errorf("session journal_capacity must be positive, got %d", c.Session.JournalCapacity)
	}
	if strings.TrimSpace(c.Storage.DB) == "" {
		return fmt.Errorf("storage db path is required")
	}
	if c.Demo.TicksPerDay <= 0 {
		return fmt.Errorf("demo ticks_per_day must be positive, got %d", c.Demo.TicksPerDay)
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// FallbackTable converts configured fallback text to the narrator's table.
func (c LLMConfig) FallbackTable() llm.Fallbacks {
	out := make(llm.Fallbacks, len(c.Fallbacks))
	for k, v := range c.Fallbacks {
		out[llm.ParseCategory(k)] = v
	}
	return out
}
