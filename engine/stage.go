// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package engine defines the stage contract (spec §6) every
// reconstruction component implements, and the per-run context a stage
// is invoked with. It sits below the pipeline driver so that stage
// packages (clustering, topo, trackassoc, recluster, fragment, pfo)
// never need to import the driver that composes them (spec §9: replace
// deep virtual "Algorithm"+"Factory" inheritance with a registry of
// stage-type names mapped to factory callables producing an object
// implementing the capability set {readSettings, initialize, run}).
package engine

import (
	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
)

// Status is a stage's run outcome.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotApplicable
)

// RunContext is the per-event state a stage's Run reads and mutates.
type RunContext struct {
	Store   *objstore.Store
	Log     log.Logger
	EventID uint64
}

// Stage is the capability set spec §6 requires: readSettings,
// initialize, run. Implementations are constructed fresh per engine
// instance (spec §9's singleton replacement) and hold no package-level
// state.
type Stage interface {
	ReadSettings(cfg config.ConfigHandle) error
	Initialize() error
	Run(rc *RunContext) (Status, error)
}

// Factory constructs a fresh Stage instance, the registry's value type
// (spec §6 "Algorithm registry... mapping stage type-name to factory
// callable").
type Factory func() Stage
