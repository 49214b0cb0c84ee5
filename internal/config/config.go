package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/scanlibs/internal/exclude"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "scanlibs"

	// DefaultTimeout bounds reading and parsing one file. Larger system
	// images hold a few big libraries that take seconds to read from slow
	// storage.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxFileSize is the largest file that is parsed.
	DefaultMaxFileSize = 256 * 1024 * 1024 // 256MB

	// DefaultCacheSize is the number of extraction outcomes cached by
	// content digest.
	DefaultCacheSize = 4096

	// ReadErrorAbort stops the scan at the first unreadable file.
	ReadErrorAbort = "abort"

	// ReadErrorUnparseable records unreadable files as unparseable.
	ReadErrorUnparseable = "unparseable"
)

// Config holds all options of a scan.
type Config struct {
	// Files are the paths given on the command line.
	Files []string

	// Recursive expands directory arguments to the regular files below them.
	Recursive bool

	// DepsFile is a previously written deps file loaded ahead of Files.
	DepsFile string

	// Workers is the number of files processed concurrently.
	Workers int

	// Timeout bounds the work on a single file.
	Timeout time.Duration

	// MaxFileSize is the size ceiling in bytes; larger files are unparseable.
	MaxFileSize int64

	// CacheSize is the number of cached outcomes; 0 disables the cache.
	CacheSize int

	// FullPaths keeps directory prefixes on runtime candidates.
	FullPaths bool

	// Excludes replaces the default exclusion list when non-empty.
	Excludes []string

	// NoDefaultExcludes disables the default exclusion list.
	NoDefaultExcludes bool

	// OnReadError is ReadErrorAbort or ReadErrorUnparseable.
	OnReadError string

	// Plot writes a graph description instead of a report.
	Plot bool

	// PlotOutput is the graph destination; empty falls back to OutputFile.
	PlotOutput string

	// PlotFormat names the graph format; empty picks it from the
	// destination's extension.
	PlotFormat string

	// JSONReport writes a JSON report.
	JSONReport bool

	// MarkdownReport writes a Markdown report.
	MarkdownReport bool

	// OutputFile is where the report or plot goes; empty means stdout.
	OutputFile string

	// SaveToDB stores the scan in the history database.
	SaveToDB bool

	// Label names the saved scan in the history database.
	Label string

	// DBDir is the directory holding the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. When empty the
	// default locations are searched.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		Timeout:     DefaultTimeout,
		MaxFileSize: DefaultMaxFileSize,
		CacheSize:   DefaultCacheSize,
		OnReadError: ReadErrorAbort,
		DBDir:       XDGDataDir(),
	}
}

// ExcludeSet returns the exclusion set selected by Excludes and
// NoDefaultExcludes.
func (c *Config) ExcludeSet() exclude.Set {
	if len(c.Excludes) > 0 {
		return exclude.NewSet(c.Excludes...)
	}
	if c.NoDefaultExcludes {
		return exclude.NewSet()
	}
	return exclude.Default()
}

// XDGDataDir returns the XDG data directory for scanlibs.
// On Linux: ~/.local/share/scanlibs
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scanlibs.
// On Linux: ~/.config/scanlibs
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Files) == 0 && c.DepsFile == "" {
		return ErrNoInput
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxFileSize <= 0 {
		return ErrInvalidMaxFileSize
	}
	if c.CacheSize < 0 {
		return ErrInvalidCacheSize
	}
	if c.OnReadError != ReadErrorAbort && c.OnReadError != ReadErrorUnparseable {
		return ErrInvalidReadErrorPolicy
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.Plot && (c.JSONReport || c.MarkdownReport) {
		return ErrConflictingOutputModes
	}
	return nil
}
