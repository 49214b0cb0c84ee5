// Package log provides slog loggers whose output is safe to print on a
// terminal.
//
// Scanned file names come from arbitrary directory trees and may contain
// newlines or terminal escape sequences. SanitizeHandler escapes control
// characters in the message and in every string attribute before the
// record reaches the underlying handler, so one log record stays on one
// line. Attributes whose key names a credential are masked, since
// configuration values can be expanded from the environment.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Warn("file exceeds size limit", "path", path)
//	slog.SetDefault(logger)
package log
