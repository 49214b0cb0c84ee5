package model

import "strings"

// Record pairs a scanned path with its extraction outcome.
type Record struct {
	// Path identifies the scanned artifact. It is assigned at scan time
	// and never rewritten.
	Path string `json:"path"`

	// Outcome is the extraction result for Path.
	Outcome Outcome `json:"outcome"`
}

// NewRecord creates a Record.
func NewRecord(path string, outcome Outcome) Record {
	return Record{Path: path, Outcome: outcome}
}

// Stream is the ordered sequence of records produced by a scan.
// Order follows the original input order.
type Stream []Record

// Equal reports whether both streams hold equal records in the same order.
func (s Stream) Equal(other Stream) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Path != other[i].Path || !s[i].Outcome.Equal(other[i].Outcome) {
			return false
		}
	}
	return true
}

// Paths returns the scanned paths in order.
func (s Stream) Paths() []string {
	paths := make([]string, len(s))
	for i, r := range s {
		paths[i] = r.Path
	}
	return paths
}

// Label returns the terminal path component used as a node's display
// identity. Distinct paths sharing a file name map to the same label;
// that collision is accepted behavior.
func Label(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
