package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the configuration file name looked up in the
	// current and home directories.
	DefaultConfigFile = ".scanlibs"

	// XDGConfigFile is the configuration file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"

	// EnvFile is the dotenv file loaded before configuration is read.
	EnvFile = ".env"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the YAML configuration file. Values may refer
// to environment variables as ${NAME}.
type File struct {
	// Excludes replaces the default exclusion list.
	Excludes []string `yaml:"excludes,omitempty"`

	// NoDefaultExcludes disables the default exclusion list.
	NoDefaultExcludes *bool `yaml:"noDefaultExcludes,omitempty"`

	// Workers is the number of files processed concurrently.
	Workers int `yaml:"workers,omitempty"`

	// MaxFileSize is the per-file size ceiling in bytes.
	MaxFileSize int64 `yaml:"maxFileSize,omitempty"`

	// Timeout is the per-file time ceiling, such as "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// CacheSize is the number of cached outcomes.
	CacheSize *int `yaml:"cacheSize,omitempty"`

	// FullPaths keeps directory prefixes on runtime candidates.
	FullPaths *bool `yaml:"fullPaths,omitempty"`

	// OnReadError is "abort" or "unparseable".
	OnReadError string `yaml:"onReadError,omitempty"`
}

// Validate checks the value ranges of the file.
func (f *File) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Excludes, validation.Each(validation.Required)),
		validation.Field(&f.Workers, validation.Min(0)),
		validation.Field(&f.MaxFileSize, validation.Min(int64(0))),
		validation.Field(&f.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&f.CacheSize, validation.Min(0)),
		validation.Field(&f.OnReadError, validation.In(ReadErrorAbort, ReadErrorUnparseable)),
	)
}

// ApplyTo copies the values set in f into c. isSet reports whether the
// named command-line flag was given; flags take precedence over the file.
func (f *File) ApplyTo(c *Config, isSet func(flag string) bool) {
	if len(f.Excludes) > 0 && !isSet("exclude") {
		c.Excludes = append([]string(nil), f.Excludes...)
	}
	if f.NoDefaultExcludes != nil && !isSet("no-default-excludes") {
		c.NoDefaultExcludes = *f.NoDefaultExcludes
	}
	if f.Workers > 0 && !isSet("workers") {
		c.Workers = f.Workers
	}
	if f.MaxFileSize > 0 && !isSet("max-size") {
		c.MaxFileSize = f.MaxFileSize
	}
	if f.Timeout > 0 && !isSet("timeout") {
		c.Timeout = f.Timeout
	}
	if f.CacheSize != nil && !isSet("cache-size") {
		c.CacheSize = *f.CacheSize
	}
	if f.FullPaths != nil && !isSet("full-paths") {
		c.FullPaths = *f.FullPaths
	}
	if f.OnReadError != "" && !isSet("on-read-error") {
		c.OnReadError = f.OnReadError
	}
}

// LoadConfigFile reads, expands and validates a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. .scanlibs in the current directory
// 3. config.yaml in the XDG config directory
// 4. .scanlibs in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// LoadEnv loads variables from the given dotenv files, or from .env in the
// current directory when none are given. Missing files are ignored and
// variables already set in the environment are kept.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{EnvFile}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
