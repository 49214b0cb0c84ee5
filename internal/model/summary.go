package model

import "sort"

// DefaultTopLibraries is the number of most-referenced libraries kept in a Summary.
const DefaultTopLibraries = 10

// Summary aggregates a Stream into counts for reports and scan history.
type Summary struct {
	// Inputs is the number of scanned files.
	Inputs int `json:"inputs"`

	// Unparseable is the number of inputs that were not ELF images.
	Unparseable int `json:"unparseable"`

	// NoDependencies is the number of parseable inputs whose lists are both empty.
	NoDependencies int `json:"no_dependencies"`

	// LinkedRefs counts linked entries across all records.
	LinkedRefs int `json:"linked_refs"`

	// RuntimeRefs counts runtime candidates that are not also linked.
	RuntimeRefs int `json:"runtime_refs"`

	// DistinctLibraries is the number of distinct library labels referenced.
	DistinctLibraries int `json:"distinct_libraries"`

	// TopLibraries lists the most referenced libraries, most used first.
	TopLibraries []LibraryUsage `json:"top_libraries,omitempty"`
}

// LibraryUsage counts how many inputs reference a library.
type LibraryUsage struct {
	// Name is the library label.
	Name string `json:"name"`

	// Dependents is the number of inputs referencing Name.
	Dependents int `json:"dependents"`
}

// NewSummary computes a Summary over s.
func NewSummary(s Stream) *Summary {
	sum := &Summary{Inputs: len(s)}
	dependents := make(map[string]int)

	for _, r := range s {
		if r.Outcome.IsUnparseable() {
			sum.Unparseable++
			continue
		}
		all := r.Outcome.All()
		if len(all) == 0 {
			sum.NoDependencies++
			continue
		}
		seen := make(map[string]struct{}, len(all))
		for _, name := range all {
			if r.Outcome.IsLinked(name) {
				sum.LinkedRefs++
			} else {
				sum.RuntimeRefs++
			}
			label := Label(name)
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			dependents[label]++
		}
	}

	sum.DistinctLibraries = len(dependents)
	sum.TopLibraries = topLibraries(dependents, DefaultTopLibraries)
	return sum
}

// HasDependencies reports whether any record references a library.
func (s *Summary) HasDependencies() bool {
	return s.LinkedRefs+s.RuntimeRefs > 0
}

// topLibraries returns up to n entries ordered by dependents, then name.
func topLibraries(dependents map[string]int, n int) []LibraryUsage {
	usage := make([]LibraryUsage, 0, len(dependents))
	for name, count := range dependents {
		usage = append(usage, LibraryUsage{Name: name, Dependents: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Dependents != usage[j].Dependents {
			return usage[i].Dependents > usage[j].Dependents
		}
		return usage[i].Name < usage[j].Name
	})
	if len(usage) > n {
		usage = usage[:n]
	}
	return usage
}
