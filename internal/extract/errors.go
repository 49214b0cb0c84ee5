package extract

import "errors"

// ErrRead is returned by ExtractFile when an input file is missing or
// cannot be read. The returned error wraps ErrRead and the underlying
// os error, and names the path.
var ErrRead = errors.New("cannot read input file")

// errTooLarge reports that a file grew past the size ceiling while being read.
var errTooLarge = errors.New("file exceeds size limit")
