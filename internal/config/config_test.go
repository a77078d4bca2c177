package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("STALLED_HOURS", "")
	t.Setenv("SWEEP_SCHEDULE", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StalledHours != 24 {
		t.Fatalf("expected default stalled hours 24, got %d", cfg.StalledHours)
	}
	if cfg.SweepSchedule != "*/30 * * * *" {
		t.Fatalf("expected default sweep schedule, got %q", cfg.SweepSchedule)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rate limit 50, got %d", cfg.APIRateLimitRPS)
	}
	if cfg.IsProduction() {
		t.Fatalf("development config should not report production")
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("STALLED_HOURS", "48")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CLUSTER_EPSILON", "0.5")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StalledHours != 48 {
		t.Fatalf("expected stalled hours 48, got %d", cfg.StalledHours)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production environment")
	}
	if cfg.ClusterEpsilon != 0.5 {
		t.Fatalf("expected epsilon 0.5, got %v", cfg.ClusterEpsilon)
	}
}

func TestLoadOverlaysYAMLFile(t *testing.T) {
	t.Setenv("STALLED_HOURS", "48")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "stalled_hours: 12\nnats_subject: import.jobs.test\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StalledHours != 12 {
		t.Fatalf("file should win over env, got %d", cfg.StalledHours)
	}
	if cfg.NATSSubject != "import.jobs.test" {
		t.Fatalf("expected subject from file, got %q", cfg.NATSSubject)
	}
	// a key the file does not set keeps its env/default value
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port, got %q", cfg.APIPort)
	}
}

func TestLoadFailsOnBrokenConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stalled_hours: [broken"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}
