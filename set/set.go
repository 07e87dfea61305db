// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package set implements the generic membership set and the
// deterministic-ordering helper the object store relies on to satisfy
// spec §3.2's "all hit/cluster/track iteration where deterministic
// output matters uses identity tie-breaks" guarantee. Go map iteration
// order is randomized, so every place the reconstruction pipeline needs
// a repeatable sequence goes through Sorted instead of ranging a map.
package set

import (
	"golang.org/x/exp/maps"
)

// Set is a set of unique, comparable elements (hit addresses, cluster
// ids, track ids, ...). It carries no ordering of its own; use Sorted
// to read it back deterministically.
type Set[T comparable] map[T]struct{}

// Of returns a Set initialized with elts.
func Of[T comparable](elts ...T) Set[T] {
	s := make(Set[T], len(elts))
	s.Add(elts...)
	return s
}

// Add inserts elts into the set.
func (s Set[T]) Add(elts ...T) {
	for _, e := range elts {
		s[e] = struct{}{}
	}
}

// Remove deletes elts from the set, ignoring absent ones.
func (s Set[T]) Remove(elts ...T) {
	for _, e := range elts {
		delete(s, e)
	}
}

// Contains reports whether elt is a member.
func (s Set[T]) Contains(elt T) bool {
	_, ok := s[elt]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s)
}

// Clone returns a shallow copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	maps.Copy(out, s)
	return out
}

// Union returns a new set with the members of both s and other.
func (s Set[T]) Union(other Set[T]) Set[T] {
	out := make(Set[T], s.Len()+other.Len())
	maps.Copy(out, s)
	maps.Copy(out, other)
	return out
}

// Intersect returns a new set with only the members present in both.
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	small, big := s, other
	if big.Len() < small.Len() {
		small, big = big, small
	}
	out := make(Set[T])
	for e := range small {
		if big.Contains(e) {
			out.Add(e)
		}
	}
	return out
}

// Subtract returns the members of s that are not in other, the set
// analogue of mergeAndDelete removing a donor's hits from a recipient's
// complement view.
func (s Set[T]) Subtract(other Set[T]) Set[T] {
	out := make(Set[T])
	for e := range s {
		if !other.Contains(e) {
			out.Add(e)
		}
	}
	return out
}

// Unordered returns the members in map-iteration (non-deterministic)
// order. Callers that need a reproducible PFO sequence must use Sorted.
func (s Set[T]) Unordered() []T {
	return maps.Keys(s)
}

// Sorted returns the members ordered by less, the generic form of
// spec §3.2's "(pseudoLayer asc, sort-key asc, identity-tiebreak)"
// contract. Callers supply less with the identity tie-break already
// folded in so two runs over the same membership always agree.
func Sorted[T comparable](s Set[T], less func(a, b T) bool) []T {
	out := s.Unordered()
	insertionSort(out, less)
	return out
}

// insertionSort is used instead of sort.Slice so that comparisons made
// while iterating small per-layer hit sets (the common case) do not pay
// for an unstable interface-based sort; layer occupancy rarely exceeds a
// few hundred hits.
func insertionSort[T any](xs []T, less func(a, b T) bool) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && less(xs[j], xs[j-1]); j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
