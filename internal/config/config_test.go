package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/storyteller/internal/llm"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.DailyLimit != llm.DefaultDailyLimit || cfg.Chronicle.TopK != 5 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storyteller.yaml")
	data := `
log_level: debug
chronicle:
  capacity: 50
  weights:
    keyword: 4
    recency_window: 30
nemesis:
  cooldown_days: 2
llm:
  daily_limit: 7
  timeout: 3s
  fallbacks:
    raid: ["They came again."]
session:
  choice_interval_days: 3
storage:
  db: from-file.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORYTELLER_DB", "from-env.db")
	t.Setenv("ANTHROPIC_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"capacity", cfg.Chronicle.Capacity, 50},
		{"keyword weight", cfg.Chronicle.Weights.Keyword, 4.0},
		{"participant weight kept", cfg.Chronicle.Weights.Participant, 3.0},
		{"recency window", cfg.Chronicle.Weights.RecencyWindow, 30.0},
		{"cooldown", cfg.Nemesis.CooldownDays, 2},
		{"max encounters kept", cfg.Nemesis.MaxEncounters, 3},
		{"daily limit", cfg.LLM.DailyLimit, 7},
		{"timeout", cfg.LLM.Timeout, 3 * time.Second},
		{"db from env", cfg.Storage.DB, "from-env.db"},
		{"api key from env", cfg.LLM.APIKey, "secret"},
		{"choice interval", cfg.Session.ChoiceIntervalDays, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if fb := cfg.LLM.FallbackTable(); fb[llm.CategoryRaid][0] != "They came again." {
		t.Fatalf("fallbacks = %v", fb)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero limit", "llm:\n  daily_limit: 0\n", "daily_limit"},
		{"bad level", "log_level: loud\n", "log level"},
		{"negative weight", "chronicle:\n  weights:\n    keyword: -1\n", "weights"},
		{"broken yaml", "chronicle: [", "loading config"},
		{"misspelled fallback", "llm:\n  fallbacks:\n    raids: [\"They came.\"]\n", "unknown category \"raids\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
