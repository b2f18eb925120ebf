// Package collections provides small generic containers.
package collections

import (
	"cmp"
	"slices"
)

// Set is a set of comparable values. The zero value is not usable; create
// one with NewSet.
type Set[T comparable] map[T]struct{}

// NewSet creates a Set holding vs.
func NewSet[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

// Insert adds v and reports whether it was not already present.
func (s Set[T]) Insert(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports whether v is in the set.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s)
}

// Sorted returns the members of s in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
