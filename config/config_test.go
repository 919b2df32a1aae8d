package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if !slices.Equal(cfg.Generation.Models, DefaultModels) {
		t.Errorf("generation.models = %v, want %v", cfg.Generation.Models, DefaultModels)
	}
	if cfg.Generation.AttemptTimeout != 60*time.Second {
		t.Errorf("generation.attempt_timeout = %s", cfg.Generation.AttemptTimeout)
	}
	if cfg.Generation.Wait != 500*time.Millisecond {
		t.Errorf("generation.wait = %s", cfg.Generation.Wait)
	}
	if cfg.Pipeline.DefaultTopK != 3 || cfg.Pipeline.MaxTopK != 10 {
		t.Errorf("pipeline top k = %d/%d", cfg.Pipeline.DefaultTopK, cfg.Pipeline.MaxTopK)
	}
	if cfg.Embedding.Timeout != 15*time.Second {
		t.Errorf("embedding.timeout = %s", cfg.Embedding.Timeout)
	}
	if cfg.Index.Backend != "file" {
		t.Errorf("index.backend = %q", cfg.Index.Backend)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOVASSIST_SERVER_ADDR", ":9090")
	t.Setenv("GOVASSIST_GENERATION_MODELS", "model-a, model-b")
	t.Setenv("GOVASSIST_GENERATION_ATTEMPT_TIMEOUT", "5s")
	t.Setenv("GOVASSIST_PIPELINE_DEFAULT_TOP_K", "5")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q, want :9090", cfg.Server.Addr)
	}
	if want := []string{"model-a", "model-b"}; !slices.Equal(cfg.Generation.Models, want) {
		t.Errorf("generation.models = %q, want %q", cfg.Generation.Models, want)
	}
	if cfg.Generation.AttemptTimeout != 5*time.Second {
		t.Errorf("generation.attempt_timeout = %s, want 5s", cfg.Generation.AttemptTimeout)
	}
	if cfg.Pipeline.DefaultTopK != 5 {
		t.Errorf("pipeline.default_top_k = %d, want 5", cfg.Pipeline.DefaultTopK)
	}
	if cfg.Generation.APIKey != "sk-or-test" {
		t.Errorf("generation.api_key = %q, want OPENROUTER_API_KEY value", cfg.Generation.APIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GOVASSIST_INDEX_DIR=/srv/index\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GOVASSIST_INDEX_DIR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Index.Dir != "/srv/index" {
		t.Errorf("index.dir = %q, want value from .env", cfg.Index.Dir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "govassist.yaml")
	yaml := `
generation:
  provider: claude
  models: [claude-3-5-haiku-latest]
index:
  backend: postgres
postgres:
  host: db.internal
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Generation.Provider != "claude" {
		t.Errorf("generation.provider = %q", cfg.Generation.Provider)
	}
	if len(cfg.Generation.Models) != 1 || cfg.Generation.Models[0] != "claude-3-5-haiku-latest" {
		t.Errorf("generation.models = %v", cfg.Generation.Models)
	}
	if cfg.Index.Backend != "postgres" || cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5432 {
		t.Errorf("postgres settings = %+v backend=%q", cfg.Postgres, cfg.Index.Backend)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatal("Load() error = nil, want error for missing explicit file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GOVASSIST_GENERATION_PROVIDER", "gemini")
	t.Setenv("GOVASSIST_PIPELINE_DEFAULT_TOP_K", "50")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	for _, field := range []string{"generation.provider", "pipeline.default_top_k"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}
