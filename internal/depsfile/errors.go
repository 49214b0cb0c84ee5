package depsfile

import (
	"errors"
	"fmt"
)

var (
	// ErrOrphanDependency is returned when an indented line appears before
	// any record header or under an unparseable record.
	ErrOrphanDependency = errors.New("dependency line without a preceding file line")

	// ErrDuplicateSentinel is returned when a record holds more than one
	// runtime marker line.
	ErrDuplicateSentinel = errors.New("runtime marker repeated in one record")

	// ErrMalformedDependency is returned when a dependency name starts with
	// whitespace after the two-space indent.
	ErrMalformedDependency = errors.New("dependency name has leading whitespace")

	// ErrUnencodable is returned by Encode for a path or library name that
	// would not decode back to itself.
	ErrUnencodable = errors.New("name cannot be written to a deps file")
)

// SyntaxError reports malformed input together with its 1-based line number.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("deps file line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
