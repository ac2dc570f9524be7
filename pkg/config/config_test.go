package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfigFile(t, `
port: "8090"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
`)

	// Clear env vars that might interfere with test
	os.Unsetenv("PGHOST")

	// Set env vars to override YAML values
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify env vars override YAML
	if cfg.Port != "9090" {
		t.Errorf("expected Port=9090 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}

	// Verify version was set
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}

	// Verify YAML value used for database host (proves YAML was read)
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
}

func TestLoad_Defaults(t *testing.T) {
	writeConfigFile(t, `
port: "8090"
env: "test"
database:
  host: "localhost"
`)

	os.Unsetenv("SCHEDULER_WORKERS")
	os.Unsetenv("SCHEDULER_MAX_RETRIES")
	os.Unsetenv("SCHEDULER_RETRY_BASE_SECONDS")
	os.Unsetenv("RESOLUTION_FILING_WINDOW")
	os.Unsetenv("RESOLUTION_MAX_DEPTH")
	os.Unsetenv("REGISTRY_CACHE_TTL_MINUTES")
	os.Unsetenv("LLM_PROVIDER")
	os.Unsetenv("LLM_TIMEOUT_SECONDS")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Scheduler.Workers != 4 {
		t.Errorf("expected Scheduler.Workers=4 (default), got %d", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.MaxRetries != 3 {
		t.Errorf("expected Scheduler.MaxRetries=3 (default), got %d", cfg.Scheduler.MaxRetries)
	}
	if cfg.Scheduler.RetryBaseSeconds != 60 {
		t.Errorf("expected Scheduler.RetryBaseSeconds=60 (default), got %d", cfg.Scheduler.RetryBaseSeconds)
	}
	if cfg.Resolution.FilingWindow != 10 {
		t.Errorf("expected Resolution.FilingWindow=10 (default), got %d", cfg.Resolution.FilingWindow)
	}
	if cfg.Resolution.MaxDepth != 50 {
		t.Errorf("expected Resolution.MaxDepth=50 (default), got %d", cfg.Resolution.MaxDepth)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected LLM.Provider=openai (default), got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.TimeoutSeconds != 60 {
		t.Errorf("expected LLM.TimeoutSeconds=60 (default), got %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Registry.CacheTTLMinutes != 1440 {
		t.Errorf("expected Registry.CacheTTLMinutes=1440 (default), got %d", cfg.Registry.CacheTTLMinutes)
	}
}

func TestLoad_UnknownLLMProvider(t *testing.T) {
	writeConfigFile(t, `
port: "8090"
env: "test"
llm:
  provider: "mystery"
database:
  host: "localhost"
`)

	os.Unsetenv("LLM_PROVIDER")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error for unknown llm provider, got nil")
	}
}

func TestLoad_InvalidSchedulerWorkers(t *testing.T) {
	writeConfigFile(t, `
port: "8090"
env: "test"
scheduler:
  workers: 0
database:
  host: "localhost"
`)

	os.Unsetenv("SCHEDULER_WORKERS")

	_, err := Load("test-version")
	if err == nil {
		t.Fatal("expected error for zero scheduler workers, got nil")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	_, err = Load("test-version")
	if err == nil {
		t.Error("expected error when config.yaml is missing")
	}
}

func TestConnectionString(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "ownership",
		Password: "secret",
		Database: "ownership_engine",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=ownership password=secret dbname=ownership_engine sslmode=disable"
	if got := dbCfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
