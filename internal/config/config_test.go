package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/avlowe/minute/internal/config"
)

func TestLoadDefaultConfigUsesEnvRecallKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("RECALL_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "minute")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7430" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Recall.APIKey != "test-key" {
		t.Fatalf("expected Recall key from env, got %q", cfg.Recall.APIKey)
	}
	if cfg.Recall.BaseURL != config.Default().Recall.BaseURL {
		t.Fatalf("unexpected Recall base url: %q", cfg.Recall.BaseURL)
	}
	if cfg.ChangeAgent.Enabled {
		t.Fatal("expected ChangeAgent disabled by default")
	}
	if cfg.Workflow.Workers != config.Default().Workflow.Workers {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != config.Default().Workflow.HeartbeatTimeout {
		t.Fatalf("unexpected heartbeat timeout: %d", cfg.Workflow.HeartbeatTimeout)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "minute.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("RECALL_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "minute.toml")

	type payload struct {
		Recall struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"recall"`
		Notifications struct {
			NtfyTopic string `toml:"ntfy_topic"`
		} `toml:"notifications"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Recall.APIKey = "abc123"
	custom.Recall.BaseURL = "https://example.com/recall"
	custom.Notifications.NtfyTopic = "minute-alerts"
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Recall.APIKey != "abc123" {
		t.Fatalf("expected Recall key from file, got %q", cfg.Recall.APIKey)
	}
	if cfg.Recall.BaseURL != "https://example.com/recall" {
		t.Fatalf("expected Recall base url override, got %q", cfg.Recall.BaseURL)
	}
	if cfg.Notifications.NtfyTopic != "minute-alerts" {
		t.Fatalf("expected ntfy topic override, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestEnvVarOverridesConfigFileForSecrets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "minute.toml")

	type payload struct {
		Paths struct {
			APIToken string `toml:"api_token"`
		} `toml:"paths"`
		Recall struct {
			APIKey string `toml:"api_key"`
		} `toml:"recall"`
		ChangeAgent struct {
			APIKey string `toml:"api_key"`
		} `toml:"changeagent"`
		Auth struct {
			JWTSecret string `toml:"jwt_secret"`
		} `toml:"auth"`
	}
	custom := payload{}
	custom.Paths.APIToken = "file-api-token"
	custom.Recall.APIKey = "file-recall"
	custom.ChangeAgent.APIKey = "file-changeagent"
	custom.Auth.JWTSecret = "file-secret"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("MINUTE_API_TOKEN", "env-api-token")
	t.Setenv("RECALL_API_KEY", "env-recall")
	t.Setenv("CHANGEAGENT_API_KEY", "env-changeagent")
	t.Setenv("MINUTE_JWT_SECRET", "env-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Paths.APIToken != "env-api-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Recall.APIKey != "env-recall" {
		t.Errorf("expected Recall key from env, got %q", cfg.Recall.APIKey)
	}
	if cfg.ChangeAgent.APIKey != "env-changeagent" {
		t.Errorf("expected ChangeAgent key from env, got %q", cfg.ChangeAgent.APIKey)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("expected JWT secret from env, got %q", cfg.Auth.JWTSecret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_recall_api_key_here") {
		t.Fatalf("sample config missing placeholder Recall key: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.DataDir, "minute") {
			t.Fatalf("expected data dir to contain minute, got %q", cfg.Paths.DataDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Recall.APIKey = "key"
	cfg.Workflow.QueuePollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}

	cfg = config.Default()
	cfg.Recall.APIKey = "key"
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Recall.APIKey = "key"
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Recall.APIKey = "key"
	cfg.Workflow.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}

	cfg = config.Default()
	cfg.Recall.APIKey = "key"
	cfg.Workflow.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero attempt budget")
	}

	cfg = config.Default()
	cfg.Recall.APIKey = "key"
	cfg.ChangeAgent.Enabled = true
	cfg.ChangeAgent.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when ChangeAgent enabled without API key")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when Recall key missing")
	}
}
