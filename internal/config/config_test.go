package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storynexus/internal/generation"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadProjectConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "test-project" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Generation.Timeout != 45*time.Second {
			t.Errorf("timeout = %v, want 45s", cfg.Generation.Timeout)
		}
		if cfg.World.Topology != "tree" || cfg.World.MaxDepth != 3 {
			t.Errorf("world = %+v", cfg.World)
		}
		if len(cfg.Stories.Exclude) != 1 {
			t.Errorf("exclude = %v", cfg.Stories.Exclude)
		}
	})

	t.Run("defaults fill missing sections", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Database.DSN != DefaultDSN {
			t.Errorf("dsn = %q", cfg.Database.DSN)
		}
		if cfg.Generation.Provider != ProviderChat || cfg.Generation.Endpoint != generation.DefaultChatEndpoint {
			t.Errorf("generation = %+v", cfg.Generation)
		}
		if cfg.Generation.Model != generation.DefaultChatModel || cfg.Generation.Timeout != generation.DefaultTimeout {
			t.Errorf("generation = %+v", cfg.Generation)
		}
		if cfg.World.GridSize != 10 || cfg.World.Size != "Normal" || cfg.World.MaxDepth != 6 || cfg.World.ContinuationProbability != 0.6 {
			t.Errorf("world = %+v", cfg.World)
		}
	})

	t.Run("gemini gets its own default model", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\ngeneration:\n  provider: gemini\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Generation.Model != generation.DefaultGeminiModel {
			t.Errorf("model = %q", cfg.Generation.Model)
		}
	})

	invalid := []struct {
		name     string
		contents string
	}{
		{name: "missing project name", contents: "version: 1\n"},
		{name: "unsupported version", contents: "project: test\nversion: 2\n"},
		{name: "unknown provider", contents: "project: test\nversion: 1\ngeneration:\n  provider: carrier-pigeon\n"},
		{name: "unknown topology", contents: "project: test\nversion: 1\nworld:\n  topology: hex\n"},
		{name: "unknown size", contents: "project: test\nversion: 1\nworld:\n  size: Gigantic\n"},
		{name: "negative grid size", contents: "project: test\nversion: 1\nworld:\n  grid_size: -1\n"},
		{name: "probability above one", contents: "project: test\nversion: 1\nworld:\n  continuation_probability: 1.5\n"},
		{name: "empty story path", contents: "project: test\nversion: 1\nstories:\n  paths: [\"\"]\n"},
		{name: "invalid yaml", contents: "project: [\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.contents)
			if _, err := LoadProjectConfig(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		t.Setenv("STORYNEXUS_DSN", "memory://")
		t.Setenv("STORYNEXUS_PROVIDER", "")
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Project != "storynexus" {
			t.Errorf("project = %q", cfg.Project)
		}
		if cfg.Database.DSN != "memory://" {
			t.Errorf("dsn = %q, want env override", cfg.Database.DSN)
		}
	})

	t.Run("provider override picks provider default model", func(t *testing.T) {
		t.Setenv("STORYNEXUS_PROVIDER", "Gemini")
		t.Setenv("GEMINI_API_KEY", "g-key")
		path := writeTempConfig(t, "project: test\nversion: 1\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Generation.Provider != ProviderGemini || cfg.Generation.Model != generation.DefaultGeminiModel {
			t.Errorf("generation = %+v", cfg.Generation)
		}
		if cfg.Generation.APIKey != "g-key" {
			t.Errorf("api key = %q", cfg.Generation.APIKey)
		}
	})

	t.Run("invalid file is not masked", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := Load(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("chat key falls back to perplexity key", func(t *testing.T) {
		cfg := Default()
		ApplyEnv(cfg, Env{PerplexityAPIKey: "p-key"})
		if cfg.Generation.APIKey != "p-key" {
			t.Errorf("api key = %q", cfg.Generation.APIKey)
		}
	})

	t.Run("explicit key wins", func(t *testing.T) {
		cfg := Default()
		ApplyEnv(cfg, Env{APIKey: "s-key", PerplexityAPIKey: "p-key"})
		if cfg.Generation.APIKey != "s-key" {
			t.Errorf("api key = %q", cfg.Generation.APIKey)
		}
	})
}

func TestRender(t *testing.T) {
	cfg := Default()
	cfg.Project = "harbor"
	data, err := Render(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "apikey") {
		t.Errorf("rendered config leaks the api key field:\n%s", data)
	}

	path := writeTempConfig(t, string(data))
	loaded, err := LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("rendered config does not load: %v", err)
	}
	if loaded.Project != "harbor" || loaded.Generation.Timeout != generation.DefaultTimeout {
		t.Errorf("loaded = %+v", loaded)
	}
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
