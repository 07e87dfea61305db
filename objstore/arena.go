// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package objstore is the managed-object graph and named-list state
// machine described in spec §3/§4.B: calo hits, ordered-by-layer hit
// lists, clusters, tracks, MC particles, and PFOs, all owned by one
// Store per event and referenced by stable, generation-guarded handles
// rather than raw pointers.
//
// Design note (spec §9): "Raw pointers as identity + back-references...
// Use arena-allocated entities with stable indices; weak references
// become indices guarded by generation counters." Arena is that
// re-architecture. A Handle's slot index also doubles as the deterministic
// tie-break spec §3.2/§4.B requires in place of C++'s
// stable-pointer-identity trick, since Go map/pointer iteration order is
// not reproducible across runs.
package objstore

// Handle identifies one entity of type T inside an Arena. The zero
// Handle is never valid (generation 0 is never issued), so a zero-value
// Handle field reads as "unset" without an extra boolean.
type Handle[T any] struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the unset handle.
func (h Handle[T]) IsZero() bool { return h.gen == 0 }

// Index returns the slot index backing h, used as the deterministic
// identity tie-break in sort comparators. Alloc reuses freed slots, so
// the index is not creation order once anything has been freed.
func (h Handle[T]) Index() uint32 { return h.index }

type slot[T any] struct {
	gen   uint32
	alive bool
	value T
}

// Arena owns a dense table of T, handing out Handles that stay valid
// until Free, after which the generation bump makes any older Handle
// referring to that slot resolve to "not found" instead of aliasing a
// reused slot.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
}

// Alloc stores v and returns its handle.
func (a *Arena[T]) Alloc(v T) Handle[T] {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.alive = true
		s.value = v
		return Handle[T]{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, alive: true, value: v})
	return Handle[T]{index: uint32(len(a.slots) - 1), gen: 1}
}

// Get resolves h to a mutable pointer into the arena, or false if h is
// stale (freed, or from a different arena generation).
func (a *Arena[T]) Get(h Handle[T]) (*T, bool) {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.alive || s.gen != h.gen {
		return nil, false
	}
	return &s.value, true
}

// MustGet resolves h, panicking if stale. Reserved for call sites that
// have already validated h (e.g. immediately after Alloc).
func (a *Arena[T]) MustGet(h Handle[T]) *T {
	v, ok := a.Get(h)
	if !ok {
		panic("objstore: stale handle dereferenced")
	}
	return v
}

// Free releases h's slot. Any outstanding Handle with the old
// generation becomes permanently invalid.
func (a *Arena[T]) Free(h Handle[T]) {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return
	}
	s := &a.slots[h.index]
	if s.gen != h.gen || !s.alive {
		return
	}
	s.alive = false
	var zero T
	s.value = zero
	a.free = append(a.free, h.index)
}

// Len returns the number of live entities.
func (a *Arena[T]) Len() int {
	return len(a.slots) - len(a.free)
}

// All returns every live handle, in slot-index order (see Index). The caller owns
// sorting for any other iteration order it needs.
func (a *Arena[T]) All() []Handle[T] {
	out := make([]Handle[T], 0, a.Len())
	for i := range a.slots {
		s := &a.slots[i]
		if s.alive {
			out = append(out, Handle[T]{index: uint32(i), gen: s.gen})
		}
	}
	return out
}

// arenaSnapshot is a deep-enough copy of an Arena to restore it exactly,
// backing Store.Snapshot/Restore (spec §7's pre-stage rollback).
type arenaSnapshot[T any] struct {
	slots []slot[T]
	free  []uint32
}

func (a *Arena[T]) snapshot() arenaSnapshot[T] {
	slots := make([]slot[T], len(a.slots))
	copy(slots, a.slots)
	free := make([]uint32, len(a.free))
	copy(free, a.free)
	return arenaSnapshot[T]{slots: slots, free: free}
}

func (a *Arena[T]) restore(s arenaSnapshot[T]) {
	a.slots = s.slots
	a.free = s.free
}
