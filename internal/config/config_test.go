package config

import (
	"os"
	"path/filepath"
	"testing"

	"rayzor/internal/optpass"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.LoadStdlib || !cfg.EnableCache || cfg.Strip {
		t.Errorf("defaults = %+v", cfg)
	}
	level, err := cfg.Level()
	if err != nil || level != optpass.O2 {
		t.Errorf("default level = %v, %v", level, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rayzor.toml")
	content := `
load_stdlib = false
enable_cache = false
cache_dir = "/tmp/rzc"
opt_level = "O3"
strip = true
target_triple = "wasm32-unknown-unknown"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LoadStdlib || cfg.EnableCache || !cfg.Strip {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheDir != "/tmp/rzc" || cfg.TargetTriple != "wasm32-unknown-unknown" {
		t.Errorf("cfg = %+v", cfg)
	}
	level, err := cfg.Level()
	if err != nil || level != optpass.O3 {
		t.Errorf("level = %v, %v", level, err)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rayzor.toml")
	if err := os.WriteFile(path, []byte(`opt_level = "O9"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown opt level must be rejected")
	}
}

func TestEffectiveCacheDirOverride(t *testing.T) {
	cfg := Config{CacheDir: "/custom"}
	dir, err := cfg.EffectiveCacheDir("rayzor")
	if err != nil || dir != "/custom" {
		t.Errorf("dir = %q, %v", dir, err)
	}
}
