package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath_Defaults(t *testing.T) {
	path := writeConfig(t, "log_path: /tmp/squad.log\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Scheduler.WorkerLimit != 4 {
		t.Errorf("WorkerLimit = %d, want default 4", cfg.Scheduler.WorkerLimit)
	}
	if cfg.Scheduler.AttemptTimeout != 2*time.Minute {
		t.Errorf("AttemptTimeout = %v, want 2m", cfg.Scheduler.AttemptTimeout)
	}
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want default 5", cfg.Breaker.FailureThreshold)
	}
	if len(cfg.Providers.Cheap) != 1 || cfg.Providers.Cheap[0] != "anthropic" {
		t.Errorf("Providers.Cheap = %v", cfg.Providers.Cheap)
	}
	if cfg.Bedrock.Enabled {
		t.Error("Bedrock.Enabled = true, want default false")
	}
	if cfg.LogPath != "/tmp/squad.log" {
		t.Errorf("LogPath = %q", cfg.LogPath)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  worker_limit: 8
  attempt_timeout: 45s
breaker:
  cooldown: 10s
providers:
  capable:
    - anthropic
    - bedrock
bedrock:
  enabled: true
  region: eu-west-1
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Scheduler.WorkerLimit != 8 {
		t.Errorf("WorkerLimit = %d, want 8", cfg.Scheduler.WorkerLimit)
	}
	if cfg.Scheduler.AttemptTimeout != 45*time.Second {
		t.Errorf("AttemptTimeout = %v, want 45s", cfg.Scheduler.AttemptTimeout)
	}
	if cfg.Breaker.Cooldown != 10*time.Second {
		t.Errorf("Cooldown = %v, want 10s", cfg.Breaker.Cooldown)
	}
	if len(cfg.Providers.Capable) != 2 {
		t.Errorf("Providers.Capable = %v, want two entries", cfg.Providers.Capable)
	}
	if !cfg.Bedrock.Enabled || cfg.Bedrock.Region != "eu-west-1" {
		t.Errorf("Bedrock = %+v", cfg.Bedrock)
	}
}

func TestLoadFromPath_PricingTimeoutsAndCategories(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  tier_timeouts:
    cheap: 30s
    premium: 5m
pricing:
  capable:
    input_per_mtok: 2.5
    output_per_mtok: 12.0
aggregation:
  epsilon: 2.0
  categories:
    - name: publisher
      weight: 0.6
      threshold: 75
      gate:
        metric: review_score
        comparator: ">="
        threshold: 80
    - name: reviewer
      weight: 0.4
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if got := cfg.Scheduler.TierTimeouts["cheap"]; got != 30*time.Second {
		t.Errorf("TierTimeouts[cheap] = %v, want 30s", got)
	}
	if got := cfg.Scheduler.TierTimeouts["premium"]; got != 5*time.Minute {
		t.Errorf("TierTimeouts[premium] = %v, want 5m", got)
	}
	if got := cfg.Pricing["capable"]; got.InputPerMTok != 2.5 || got.OutputPerMTok != 12.0 {
		t.Errorf("Pricing[capable] = %+v", got)
	}
	if cfg.Aggregation.Epsilon != 2.0 {
		t.Errorf("Aggregation.Epsilon = %v, want 2.0", cfg.Aggregation.Epsilon)
	}
	if len(cfg.Aggregation.Categories) != 2 {
		t.Fatalf("len(Categories) = %d, want 2", len(cfg.Aggregation.Categories))
	}
	pub := cfg.Aggregation.Categories[0]
	if pub.Name != "publisher" || pub.Weight != 0.6 || pub.Threshold != 75 {
		t.Errorf("Categories[0] = %+v", pub)
	}
	if pub.Gate == nil || pub.Gate.Metric != "review_score" || pub.Gate.Comparator != models.ComparatorGTE || pub.Gate.Threshold != 80 {
		t.Errorf("Categories[0].Gate = %+v", pub.Gate)
	}
	if cfg.Aggregation.Categories[1].Gate != nil {
		t.Error("Categories[1].Gate set, want nil when omitted")
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFromPath = nil error for a missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SQUAD_TEST_KEY", "sk-test-123")

	tests := []struct {
		in   string
		want string
	}{
		{"${SQUAD_TEST_KEY}", "sk-test-123"},
		{"sk-literal", "sk-literal"},
		{"${UNSET_SQUAD_VAR}", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
