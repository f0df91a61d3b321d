package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cantrip/internal/config"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Upload.Concurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Upload.Concurrency)
	}
	if cfg.MaxRawSizeBytes() != 10<<20 {
		t.Fatalf("expected 10MiB raw ceiling, got %d", cfg.MaxRawSizeBytes())
	}
	if cfg.MaxOutputBytes() != 2<<20 {
		t.Fatalf("expected 2MiB output ceiling, got %d", cfg.MaxOutputBytes())
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[service]
base_url = "https://cantrip.example/"

[upload]
concurrency = 5

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Service.BaseURL != "https://cantrip.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Service.BaseURL)
	}
	if cfg.Upload.Concurrency != 5 {
		t.Fatalf("expected concurrency 5, got %d", cfg.Upload.Concurrency)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad url", "[service]\nbase_url = \"not a url\"\n", "base_url"},
		{"bad quality", "[compression]\nquality = 150\n", "quality"},
		{"bad format", "[logging]\nformat = \"xml\"\n", "format"},
		{"concurrency too high", "[upload]\nconcurrency = 50\n", "concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestAPITokenFromEnvironment(t *testing.T) {
	t.Setenv("CANTRIP_API_TOKEN", "env-token")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[service]\napi_token = \"file-token\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Service.APIToken != "env-token" {
		t.Fatalf("expected env token to win, got %q", cfg.Service.APIToken)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
