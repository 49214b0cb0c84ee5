package model

import "encoding/json"

// Outcome is the result of extracting dependencies from one file.
//
// An Outcome is either unparseable (the bytes were not an ELF image, so no
// dependency data exists) or carries two ordered, duplicate-free lists:
// Linked holds the DT_NEEDED entries of the dynamic section and Runtime
// holds library names found as string constants in read-only data.
// Both lists are non-nil for a parseable outcome, possibly empty.
//
// Outcomes are treated as immutable once built. Functions that derive a new
// outcome (such as the exclusion filter) return fresh sets.
type Outcome struct {
	unparseable bool
	linked      *OrderedSet[string]
	runtime     *OrderedSet[string]
}

// Unparseable returns the outcome for input that is not a usable ELF image.
func Unparseable() Outcome {
	return Outcome{unparseable: true}
}

// Dependencies returns a parseable outcome with the given lists.
// Repeated names are dropped, keeping the first occurrence.
func Dependencies(linked, runtime []string) Outcome {
	return Outcome{
		linked:  NewOrderedSet(linked...),
		runtime: NewOrderedSet(runtime...),
	}
}

// DependencySets returns a parseable outcome backed by the given sets.
// Nil sets are replaced with empty ones. The caller must not modify the
// sets afterwards.
func DependencySets(linked, runtime *OrderedSet[string]) Outcome {
	if linked == nil {
		linked = NewOrderedSet[string]()
	}
	if runtime == nil {
		runtime = NewOrderedSet[string]()
	}
	return Outcome{linked: linked, runtime: runtime}
}

// IsUnparseable reports whether the input could not be interpreted.
func (o Outcome) IsUnparseable() bool {
	return o.unparseable
}

// Linked returns the directly linked libraries in declaration order.
// It returns an empty slice for an unparseable outcome.
func (o Outcome) Linked() []string {
	return o.linked.Items()
}

// Runtime returns the runtime-only candidates in encounter order.
// It returns an empty slice for an unparseable outcome.
func (o Outcome) Runtime() []string {
	return o.runtime.Items()
}

// IsLinked reports whether name is in the linked list.
func (o Outcome) IsLinked(name string) bool {
	return o.linked.Contains(name)
}

// All returns the union of the linked and runtime lists, linked first,
// without repeats.
func (o Outcome) All() []string {
	union := o.linked.Clone()
	o.runtime.All(func(name string) bool {
		union.Add(name)
		return true
	})
	return union.Items()
}

// Equal reports whether two outcomes hold the same data in the same order.
func (o Outcome) Equal(other Outcome) bool {
	if o.unparseable || other.unparseable {
		return o.unparseable == other.unparseable
	}
	return o.linked.Equal(other.linked) && o.runtime.Equal(other.runtime)
}

// outcomeJSON is the wire shape used for JSON reports.
type outcomeJSON struct {
	Unparseable bool     `json:"unparseable,omitempty"`
	Linked      []string `json:"linked,omitempty"`
	Runtime     []string `json:"runtime,omitempty"`
}

// MarshalJSON encodes the outcome as an object.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.unparseable {
		return json.Marshal(outcomeJSON{Unparseable: true})
	}
	return json.Marshal(outcomeJSON{Linked: o.Linked(), Runtime: o.Runtime()})
}

// UnmarshalJSON decodes an object produced by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var v outcomeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Unparseable {
		*o = Unparseable()
		return nil
	}
	*o = Dependencies(v.Linked, v.Runtime)
	return nil
}
