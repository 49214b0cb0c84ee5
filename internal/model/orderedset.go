package model

import "encoding/json"

// OrderedSet is a sequence that rejects duplicate insertions.
// The first occurrence of an element wins and insertion order is preserved.
// Removal keeps the relative order of the remaining elements.
//
// The zero value is an empty set ready to use.
type OrderedSet[T comparable] struct {
	items []T
	index map[T]struct{}
}

// NewOrderedSet returns a set holding items in order, dropping repeats.
func NewOrderedSet[T comparable](items ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add appends item unless it is already present.
// It reports whether the item was inserted.
func (s *OrderedSet[T]) Add(item T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Remove deletes item if present and reports whether it was found.
func (s *OrderedSet[T]) Remove(item T) bool {
	if _, ok := s.index[item]; !ok {
		return false
	}
	delete(s.index, item)
	for i, v := range s.items {
		if v == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether item is in the set.
func (s *OrderedSet[T]) Contains(item T) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[item]
	return ok
}

// Len returns the number of elements.
func (s *OrderedSet[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the elements in insertion order.
func (s *OrderedSet[T]) Items() []T {
	if s == nil {
		return []T{}
	}
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// All calls yield for each element in order until yield returns false.
func (s *OrderedSet[T]) All(yield func(T) bool) {
	if s == nil {
		return
	}
	for _, v := range s.items {
		if !yield(v) {
			return
		}
	}
}

// Clone returns an independent copy of the set.
func (s *OrderedSet[T]) Clone() *OrderedSet[T] {
	if s == nil {
		return NewOrderedSet[T]()
	}
	return NewOrderedSet(s.items...)
}

// Equal reports whether both sets hold the same elements in the same order.
func (s *OrderedSet[T]) Equal(other *OrderedSet[T]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a JSON array.
func (s *OrderedSet[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a JSON array, dropping repeated elements.
func (s *OrderedSet[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = OrderedSet[T]{}
	for _, item := range items {
		s.Add(item)
	}
	return nil
}
