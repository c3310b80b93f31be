// Package config holds the compilation configuration and its TOML loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"rayzor/internal/optpass"
)

// Config parameterizes one compilation.
type Config struct {
	// LoadStdlib prelinks stdlib modules before user code.
	LoadStdlib bool `toml:"load_stdlib"`
	// EnableCache consults and updates the on-disk bytecode cache.
	EnableCache bool `toml:"enable_cache"`
	// CacheDir overrides the cache location; empty selects the
	// per-profile default.
	CacheDir string `toml:"cache_dir"`
	// OptLevel selects the default pass pipeline ("O0".."O3").
	OptLevel string `toml:"opt_level"`
	// Strip tree-shakes unreachable functions before serialization.
	Strip bool `toml:"strip"`
	// TargetTriple affects default primitive sizes only when the target
	// deviates; backends own lowering decisions.
	TargetTriple string `toml:"target_triple"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		LoadStdlib:  true,
		EnableCache: true,
		OptLevel:    "O2",
	}
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Level parses the configured optimization level.
func (c Config) Level() (optpass.OptLevel, error) {
	if c.OptLevel == "" {
		return optpass.O2, nil
	}
	return optpass.ParseOptLevel(c.OptLevel)
}

// EffectiveCacheDir resolves the cache directory: the configured
// override, or a per-profile directory under the user cache root.
func (c Config) EffectiveCacheDir(app string) (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}
