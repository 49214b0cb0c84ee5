package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig tests that NewConfig returns the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("expected max file size %d, got %d", DefaultMaxFileSize, cfg.MaxFileSize)
	}
	if cfg.CacheSize != DefaultCacheSize {
		t.Errorf("expected cache size %d, got %d", DefaultCacheSize, cfg.CacheSize)
	}
	if cfg.Workers <= 0 {
		t.Errorf("expected positive worker count, got %d", cfg.Workers)
	}
	if cfg.OnReadError != ReadErrorAbort {
		t.Errorf("expected read error policy %q, got %q", ReadErrorAbort, cfg.OnReadError)
	}
	if !strings.HasSuffix(cfg.DBDir, AppName) {
		t.Errorf("expected DB dir under %s, got %s", AppName, cfg.DBDir)
	}
}

// TestConfigValidate tests every validation rule of Config.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid with files", modify: func(*Config) {}},
		{name: "valid with deps file only", modify: func(c *Config) {
			c.Files = nil
			c.DepsFile = "deps.txt"
		}},
		{name: "no input", modify: func(c *Config) { c.Files = nil }, wantErr: ErrNoInput},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "negative max size", modify: func(c *Config) { c.MaxFileSize = -1 }, wantErr: ErrInvalidMaxFileSize},
		{name: "negative cache size", modify: func(c *Config) { c.CacheSize = -1 }, wantErr: ErrInvalidCacheSize},
		{name: "zero cache size", modify: func(c *Config) { c.CacheSize = 0 }},
		{name: "unknown policy", modify: func(c *Config) { c.OnReadError = "skip" }, wantErr: ErrInvalidReadErrorPolicy},
		{name: "json and markdown", modify: func(c *Config) {
			c.JSONReport = true
			c.MarkdownReport = true
		}, wantErr: ErrConflictingReportFormats},
		{name: "plot and json", modify: func(c *Config) {
			c.Plot = true
			c.JSONReport = true
		}, wantErr: ErrConflictingOutputModes},
		{name: "plot alone", modify: func(c *Config) { c.Plot = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Files = []string{"/bin/ls"}
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigExcludeSet tests how Excludes and NoDefaultExcludes select
// the exclusion set.
func TestConfigExcludeSet(t *testing.T) {
	t.Parallel()

	t.Run("default list", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		if !cfg.ExcludeSet().Contains("libc.so") {
			t.Error("expected libc.so to be excluded by default")
		}
	})

	t.Run("explicit list replaces default", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Excludes = []string{"libfoo.so"}
		set := cfg.ExcludeSet()
		if !set.Contains("libfoo.so") {
			t.Error("expected libfoo.so to be excluded")
		}
		if set.Contains("libc.so") {
			t.Error("expected libc.so not to be excluded")
		}
	})

	t.Run("no default excludes", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.NoDefaultExcludes = true
		if cfg.ExcludeSet().Len() != 0 {
			t.Errorf("expected empty set, got %v", cfg.ExcludeSet().Names())
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestLoadConfigFile tests parsing and validation of the YAML file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("full file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `excludes:
  - libc.so.6
  - libm.so.6
workers: 4
maxFileSize: 1048576
timeout: 5s
cacheSize: 0
fullPaths: true
onReadError: unparseable
`)
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cf.Excludes) != 2 || cf.Excludes[1] != "libm.so.6" {
			t.Errorf("unexpected excludes: %v", cf.Excludes)
		}
		if cf.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cf.Workers)
		}
		if cf.MaxFileSize != 1048576 {
			t.Errorf("expected max size 1048576, got %d", cf.MaxFileSize)
		}
		if cf.Timeout != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", cf.Timeout)
		}
		if cf.CacheSize == nil || *cf.CacheSize != 0 {
			t.Errorf("expected explicit zero cache size, got %v", cf.CacheSize)
		}
		if cf.FullPaths == nil || !*cf.FullPaths {
			t.Error("expected fullPaths true")
		}
		if cf.OnReadError != ReadErrorUnparseable {
			t.Errorf("expected unparseable policy, got %q", cf.OnReadError)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Workers != 0 || cf.Excludes != nil {
			t.Errorf("expected zero File, got %+v", cf)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	invalid := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "colour: red\n"},
		{name: "negative workers", content: "workers: -2\n"},
		{name: "bad policy", content: "onReadError: ignore\n"},
		{name: "empty exclude", content: "excludes:\n  - \"\"\n"},
		{name: "bad duration", content: "timeout: soon\n"},
		{name: "not yaml", content: "workers: [\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := LoadConfigFile(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestLoadConfigFileExpandsEnv tests ${VAR} expansion in the config file.
func TestLoadConfigFileExpandsEnv(t *testing.T) {
	t.Setenv("SCANLIBS_TEST_WORKERS", "7")

	cf, err := LoadConfigFile(writeConfig(t, "workers: ${SCANLIBS_TEST_WORKERS}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cf.Workers != 7 {
		t.Errorf("expected 7 workers, got %d", cf.Workers)
	}
}

// TestFileApplyTo tests that flags take precedence over file values.
func TestFileApplyTo(t *testing.T) {
	t.Parallel()

	fullPaths := true
	cacheSize := 10
	cf := &File{
		Excludes:    []string{"libfoo.so"},
		Workers:     3,
		MaxFileSize: 1024,
		Timeout:     time.Second,
		CacheSize:   &cacheSize,
		FullPaths:   &fullPaths,
		OnReadError: ReadErrorUnparseable,
	}

	t.Run("no flags set", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cf.ApplyTo(cfg, func(string) bool { return false })

		if cfg.Workers != 3 || cfg.MaxFileSize != 1024 || cfg.Timeout != time.Second {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if cfg.CacheSize != 10 || !cfg.FullPaths || cfg.OnReadError != ReadErrorUnparseable {
			t.Errorf("file values not applied: %+v", cfg)
		}
		if len(cfg.Excludes) != 1 || cfg.Excludes[0] != "libfoo.so" {
			t.Errorf("expected excludes [libfoo.so], got %v", cfg.Excludes)
		}
	})

	t.Run("flags win", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Workers = 9
		cf.ApplyTo(cfg, func(name string) bool { return name == "workers" })

		if cfg.Workers != 9 {
			t.Errorf("expected flag value 9 to win, got %d", cfg.Workers)
		}
		if cfg.Timeout != time.Second {
			t.Errorf("expected file timeout, got %v", cfg.Timeout)
		}
	})
}

// TestFindConfigFile tests the explicit path lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "workers: 1\n")
	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
		t.Errorf("expected empty result for missing explicit path, got %s", got)
	}
}

// TestLoadEnv tests loading variables from a dotenv file.
func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, EnvFile)
	if err := os.WriteFile(envPath, []byte("SCANLIBS_TEST_FROM_ENV=hello\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("SCANLIBS_TEST_FROM_ENV", "")
	if err := os.Unsetenv("SCANLIBS_TEST_FROM_ENV"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	if err := LoadEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SCANLIBS_TEST_FROM_ENV"); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}
