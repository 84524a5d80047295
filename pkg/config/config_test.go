package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	cfg, err := LoadConfig(filepath.Join(tmp, "nope", "config.toml"))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.DataDir != filepath.Join(tmp, "rdex") {
		t.Errorf("expected default data dir %s, got %s", filepath.Join(tmp, "rdex"), cfg.DataDir)
	}
	if cfg.QueryCacheMaxEntries != DefaultQueryCacheMaxEntries {
		t.Errorf("expected default cache bound %d, got %d", DefaultQueryCacheMaxEntries, cfg.QueryCacheMaxEntries)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")
	content := `data_dir = "/srv/rde/data"
index_dir = "/srv/rde/index"
query_cache_max_entries = 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.DataDir != "/srv/rde/data" {
		t.Errorf("unexpected data dir: %s", cfg.DataDir)
	}
	if cfg.ResolvedIndexDir() != "/srv/rde/index" {
		t.Errorf("unexpected index dir: %s", cfg.ResolvedIndexDir())
	}
	if cfg.QueryCacheMaxEntries != 100 {
		t.Errorf("unexpected cache bound: %d", cfg.QueryCacheMaxEntries)
	}
}

func TestResolvedIndexDirDefault(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	if got := cfg.ResolvedIndexDir(); got != filepath.Join("/data", "search_index") {
		t.Errorf("unexpected index dir: %s", got)
	}
}

func TestSaveTemplateConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "sub", "config.toml")

	cfg := &Config{DataDir: "/srv/rde/data", QueryCacheMaxEntries: DefaultQueryCacheMaxEntries}
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatalf("saving template config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading template config: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, `data_dir = "/srv/rde/data"`) {
		t.Errorf("template should substitute the data dir, got:\n%s", content)
	}
	if strings.Contains(content, "/home/user/.local/share/rdex") {
		t.Errorf("placeholder path survived substitution:\n%s", content)
	}
	if !strings.Contains(content, "#") {
		t.Error("template should keep its comments")
	}

	// The written template must load back as a valid config.
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading template config: %v", err)
	}
	if loaded.DataDir != "/srv/rde/data" {
		t.Errorf("unexpected data dir after reload: %s", loaded.DataDir)
	}
	if loaded.QueryCacheMaxEntries != DefaultQueryCacheMaxEntries {
		t.Errorf("unexpected cache bound after reload: %d", loaded.QueryCacheMaxEntries)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "sub", "config.toml")

	cfg := &Config{DataDir: "/data", QueryCacheMaxEntries: 42}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if loaded.DataDir != cfg.DataDir || loaded.QueryCacheMaxEntries != cfg.QueryCacheMaxEntries {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded, cfg)
	}
}
