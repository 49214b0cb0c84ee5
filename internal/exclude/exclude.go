package exclude

import (
	"sort"

	"github.com/nao1215/scanlibs/internal/model"
)

// defaultNames are the system libraries hidden unless configured otherwise.
var defaultNames = []string{
	"libc.so",
	"libm.so",
	"libdl.so",
	"libstdc++.so",
	"libutils.so",
	"libcutils.so",
	"liblog.so",
}

// Set is an immutable set of library names to exclude.
// The zero value is an empty set.
type Set struct {
	names map[string]struct{}
}

// NewSet returns a Set holding names. Empty names are ignored.
func NewSet(names ...string) Set {
	s := Set{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		s.names[name] = struct{}{}
	}
	return s
}

// Default returns the standard set of system libraries.
func Default() Set {
	return NewSet(defaultNames...)
}

// DefaultNames returns the names in Default, in their canonical order.
func DefaultNames() []string {
	names := make([]string, len(defaultNames))
	copy(names, defaultNames)
	return names
}

// Contains reports whether name, or the file name of a path entry, is in s.
func (s Set) Contains(name string) bool {
	if len(s.names) == 0 {
		return false
	}
	if _, ok := s.names[name]; ok {
		return true
	}
	label := model.Label(name)
	if label == name {
		return false
	}
	_, ok := s.names[label]
	return ok
}

// Names returns the members of s in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of names in s.
func (s Set) Len() int {
	return len(s.names)
}

// Filter returns o without the libraries in set. Unparseable outcomes are
// returned unchanged. The relative order of the remaining names is kept
// and o itself is never modified.
func Filter(o model.Outcome, set Set) model.Outcome {
	if o.IsUnparseable() {
		return o
	}
	return model.DependencySets(keep(o.Linked(), set), keep(o.Runtime(), set))
}

func keep(names []string, set Set) *model.OrderedSet[string] {
	kept := model.NewOrderedSet[string]()
	for _, name := range names {
		if !set.Contains(name) {
			kept.Add(name)
		}
	}
	return kept
}
