package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoInput is returned when neither files nor a deps file are given.
	ErrNoInput = errors.New("no input specified: provide files to scan or use --deps-file")

	// ErrInvalidTimeout is returned when the per-file timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxFileSize is returned when the size ceiling is not positive.
	ErrInvalidMaxFileSize = errors.New("invalid max file size: must be positive")

	// ErrInvalidCacheSize is returned when the cache size is negative.
	ErrInvalidCacheSize = errors.New("invalid cache size: must be non-negative")

	// ErrInvalidReadErrorPolicy is returned for an unknown --on-read-error value.
	ErrInvalidReadErrorPolicy = errors.New(`invalid read error policy: must be "abort" or "unparseable"`)

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingOutputModes is returned when a plot is requested together
	// with a JSON or Markdown report.
	ErrConflictingOutputModes = errors.New("conflicting output modes: --plot cannot be combined with --json or --markdown")
)
