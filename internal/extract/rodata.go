package extract

// The scanner below finds byte runs equivalent to the pattern
//
//	(?:[\w./-]+/)?lib[\w.-]+\.so(?=\x00)
//
// with \w restricted to ASCII [A-Za-z0-9_]. Every match consists solely of
// path bytes and ends right before a NUL, so each NUL-terminated run of path
// bytes holds at most one match and runs can be handled independently.
//
// Within a run, let base be the part after the last '/'. The leftmost match
// is the whole run when base is a library name and at least one path byte
// precedes that '/'. Otherwise it is the longest (leftmost) suffix of base
// that is a library name, if any.

const (
	libPrefix = "lib"
	libSuffix = ".so"

	// minLibNameLen is len("lib") + one name byte + len(".so").
	minLibNameLen = len(libPrefix) + 1 + len(libSuffix)
)

// isWordByte reports whether c belongs to the ASCII \w class.
func isWordByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

// isPathByte reports whether c may appear in a matched library path.
func isPathByte(c byte) bool {
	return isWordByte(c) || c == '.' || c == '-' || c == '/'
}

// isLibName reports whether s is "lib", at least one byte, then ".so".
// The caller guarantees s holds no '/' and only path bytes.
func isLibName(s []byte) bool {
	return len(s) >= minLibNameLen &&
		string(s[:len(libPrefix)]) == libPrefix &&
		string(s[len(s)-len(libSuffix):]) == libSuffix
}

// scanLibraryNames returns library names found in NUL-terminated strings
// of data, in encounter order. Repeats are kept; callers deduplicate.
// With fullPaths false each match is reduced to its file name.
func scanLibraryNames(data []byte, fullPaths bool) []string {
	var names []string

	runStart, lastSlash := -1, -1
	for i, c := range data {
		if isPathByte(c) {
			if runStart < 0 {
				runStart = i
			}
			if c == '/' {
				lastSlash = i
			}
			continue
		}
		if c == 0 && runStart >= 0 {
			if name, ok := matchRun(data[runStart:i], lastSlash-runStart, fullPaths); ok {
				names = append(names, name)
			}
		}
		runStart, lastSlash = -1, -1
	}

	return names
}

// matchRun returns the match inside one run of path bytes that ends at a
// NUL. slash is the index of the last '/' in run, or negative if none.
func matchRun(run []byte, slash int, fullPaths bool) (string, bool) {
	base := slash + 1
	if base < 0 {
		base = 0
	}

	// A directory prefix needs at least one byte before the final '/'.
	if fullPaths && slash >= 1 && isLibName(run[base:]) {
		return string(run), true
	}

	for i := base; len(run)-i >= minLibNameLen; i++ {
		if isLibName(run[i:]) {
			return string(run[i:]), true
		}
	}
	return "", false
}
