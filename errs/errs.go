// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the error taxonomy shared by every reconstruction
// stage (spec §7) and a thread-safe collector used by passes that must
// swallow individual failures without ever committing a partial mutation.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Kind classifies an error the way spec §7 enumerates them. Kind is not
// a type hierarchy: every error returned by this module is a sentinel
// wrapped with context via fmt.Errorf("...: %w", ...), and Is(err, Kind)
// recovers the classification regardless of how deeply it was wrapped.
type Kind int

const (
	// NotInitialized: an attribute was read before being set, or a
	// calculator was used before configuration.
	NotInitialized Kind = iota
	// InvalidParameter: a geometry/settings/runtime value is out of range.
	InvalidParameter
	// NotAllowed: a mutation was attempted in a phase that forbids it.
	NotAllowed
	// OutOfRange: a list or map key is absent.
	OutOfRange
	// ClusterHitOverlap: a hit would become a member of two clusters.
	ClusterHitOverlap
	// Failure: an internal consistency violation.
	Failure
)

func (k Kind) String() string {
	switch k {
	case NotInitialized:
		return "NotInitialized"
	case InvalidParameter:
		return "InvalidParameter"
	case NotAllowed:
		return "NotAllowed"
	case OutOfRange:
		return "OutOfRange"
	case ClusterHitOverlap:
		return "ClusterHitOverlap"
	case Failure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// sentinel is the concrete error type carrying a Kind. Stages never
// construct it directly; they call New or Newf.
type sentinel struct {
	kind Kind
	msg  string
}

func (s *sentinel) Error() string { return s.kind.String() + ": " + s.msg }

// New creates a new error of the given kind.
func New(kind Kind, msg string) error {
	return &sentinel{kind: kind, msg: msg}
}

// Newf creates a new error of the given kind with formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &sentinel{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or anything it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	var s *sentinel
	for err != nil {
		if as, ok := err.(*sentinel); ok {
			s = as
			break
		}
		err = errors.Unwrap(err)
	}
	return s != nil && s.kind == kind
}

// Collector accumulates errors from a batch of independent operations
// (e.g. fragment-removal candidate pairs) without aborting the batch.
// Grounded on the teacher's utils/wrappers.Errs accumulator: same
// add/errored/error-joining shape, specialized to carry Kind-aware
// sentinels so callers can still ask "did any ClusterHitOverlap happen".
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// Add records err, ignoring nil.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errored reports whether any error has been recorded.
func (c *Collector) Errored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) > 0
}

// Len returns the number of recorded errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// HasKind reports whether any recorded error classifies as kind.
func (c *Collector) HasKind(kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.errs {
		if Is(e, kind) {
			return true
		}
	}
	return false
}

// Err folds the collected errors into a single error, or nil if none
// were recorded.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch len(c.errs) {
	case 0:
		return nil
	case 1:
		return c.errs[0]
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%d errors occurred:", len(c.errs))
		for _, e := range c.errs {
			sb.WriteString("\n\t* ")
			sb.WriteString(e.Error())
		}
		return errors.New(sb.String())
	}
}
