// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import (
	"fmt"

	"github.com/luxfi/pflow/errs"
)

// SaveMode controls what NamedListSet.Save does when name already names
// a list (spec §3.2: "Saving a list with an existing name appends (no
// overwrite) — name collisions on create fail").
type SaveMode int

const (
	// AppendIfExists appends items to the existing list under name, or
	// creates it if absent. This is "Save" proper.
	AppendIfExists SaveMode = iota
	// FailIfExists requires name to be unused, the semantics the
	// cluster-split commit flow (spec §3.3) needs when saving the
	// "original" and "fragments" lists.
	FailIfExists
)

// NamedListSet is the per-kind {hit-list, cluster-list, track-list,
// PFO-list} named-list store spec §3.2 describes: a map from list name
// to contents, plus one "current" designation, with save/replace/
// temporarily-replace/drop all transactional — every method either
// fully applies its effect or returns an error having touched nothing,
// so a caller never observes a half-applied mutation and the pipeline
// driver's failure-rollback (spec §7) never has to undo a partial write.
type NamedListSet[T comparable] struct {
	lists   map[string][]T
	current string
	history []string // pushed "current" designations, for TemporarilyReplaceCurrent/Restore
}

// NewNamedListSet returns an empty set with no current designation.
func NewNamedListSet[T comparable]() *NamedListSet[T] {
	return &NamedListSet[T]{lists: make(map[string][]T)}
}

// Save stores items under name per mode. Copies items so later mutation
// of the caller's slice cannot alias the stored list.
func (n *NamedListSet[T]) Save(name string, items []T, mode SaveMode) error {
	existing, ok := n.lists[name]
	if ok && mode == FailIfExists {
		return errs.Newf(errs.NotAllowed, "list %q already exists", name)
	}
	cp := make([]T, len(items))
	copy(cp, items)
	if ok {
		n.lists[name] = append(existing, cp...)
		return nil
	}
	n.lists[name] = cp
	return nil
}

// Get returns the contents of name and whether it exists.
func (n *NamedListSet[T]) Get(name string) ([]T, bool) {
	v, ok := n.lists[name]
	return v, ok
}

// Drop removes name. Dropping the current list is not allowed without
// first designating a different current list, matching the invariant
// that "current" always resolves if any list exists.
func (n *NamedListSet[T]) Drop(name string) error {
	if _, ok := n.lists[name]; !ok {
		return errs.Newf(errs.OutOfRange, "list %q not found", name)
	}
	if name == n.current {
		return errs.Newf(errs.NotAllowed, "cannot drop the current list %q", name)
	}
	delete(n.lists, name)
	return nil
}

// ReplaceCurrent designates name as current. name must already exist.
func (n *NamedListSet[T]) ReplaceCurrent(name string) error {
	if _, ok := n.lists[name]; !ok {
		return errs.Newf(errs.OutOfRange, "list %q not found", name)
	}
	n.current = name
	return nil
}

// TemporarilyReplaceCurrent pushes the existing current designation and
// replaces it with name, for the duration of a child stage (e.g. a
// reclustering context running a clustering variant). Pair with
// RestoreCurrent, which is guaranteed to succeed as long as calls are
// properly nested.
func (n *NamedListSet[T]) TemporarilyReplaceCurrent(name string) error {
	if _, ok := n.lists[name]; !ok {
		return errs.Newf(errs.OutOfRange, "list %q not found", name)
	}
	n.history = append(n.history, n.current)
	n.current = name
	return nil
}

// RestoreCurrent undoes the most recent TemporarilyReplaceCurrent.
func (n *NamedListSet[T]) RestoreCurrent() error {
	if len(n.history) == 0 {
		return errs.New(errs.Failure, "no temporarily-replaced current designation to restore")
	}
	last := len(n.history) - 1
	n.current = n.history[last]
	n.history = n.history[:last]
	return nil
}

// Current returns the contents of the current list, its name, and
// whether a current list is designated.
func (n *NamedListSet[T]) Current() ([]T, string, bool) {
	if n.current == "" {
		return nil, "", false
	}
	v := n.lists[n.current]
	return v, n.current, true
}

// CurrentName returns the current designation, or "" if none.
func (n *NamedListSet[T]) CurrentName() string { return n.current }

// Names returns every list name currently stored, in no particular
// order; callers needing determinism must sort.
func (n *NamedListSet[T]) Names() []string {
	out := make([]string, 0, len(n.lists))
	for name := range n.lists {
		out = append(out, name)
	}
	return out
}

// snapshot captures enough state to restore this set exactly (spec §7:
// "Named-list state must be restored to the pre-stage snapshot on
// failure"). Entities are never copied, only the membership map, name
// index, and current designation — a shallow, cheap copy appropriate
// for per-stage rollback.
type namedListSnapshot[T comparable] struct {
	lists   map[string][]T
	current string
	history []string
}

func (n *NamedListSet[T]) snapshot() namedListSnapshot[T] {
	lists := make(map[string][]T, len(n.lists))
	for name, items := range n.lists {
		cp := make([]T, len(items))
		copy(cp, items)
		lists[name] = cp
	}
	history := make([]string, len(n.history))
	copy(history, n.history)
	return namedListSnapshot[T]{lists: lists, current: n.current, history: history}
}

func (n *NamedListSet[T]) restore(s namedListSnapshot[T]) {
	n.lists = s.lists
	n.current = s.current
	n.history = s.history
}

func (n *NamedListSet[T]) String() string {
	return fmt.Sprintf("NamedListSet{current=%q, lists=%d}", n.current, len(n.lists))
}
