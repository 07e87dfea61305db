// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pipeline is the engine driver (spec §6): it owns the process-
// wide algorithm registry, composes a named, ordered sequence of stages
// over one object store, and runs them once per event with per-stage
// metrics, logging, and transactional rollback on failure.
package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/metrics"
	"github.com/luxfi/pflow/objstore"
)

// Registry is the process-wide algorithm registry spec §6 describes:
// stage type-name to factory callable, open to user-defined additions
// before event processing begins.
type Registry struct {
	factories map[string]engine.Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]engine.Factory)}
}

// RegisterFactory adds or replaces the factory for name.
func (r *Registry) RegisterFactory(name string, f engine.Factory) {
	r.factories[name] = f
}

// New constructs a fresh Stage instance for name, or (nil, false) if
// name is unregistered.
func (r *Registry) New(name string) (engine.Stage, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// namedStage is one entry in a Driver's configured stage order.
type namedStage struct {
	name  string
	stage engine.Stage
}

// Driver composes a named, ordered sequence of stages over one Store
// and runs them once per event (spec §5's "Scheduling model: single-
// threaded, cooperative within an event; stages run strictly in
// declared order").
type Driver struct {
	logger     log.Logger
	reg        prometheus.Registerer
	event      *metrics.ReconstructionMetrics
	stages     []namedStage
	stageMetrics map[string]*metrics.StageMetrics
}

// NewDriver returns a driver logging through logger (nil for a no-op
// logger) and registering every stage's and the event-level metrics
// against reg (nil for a private, unregistered registry per event
// instance — see metrics.NewStageMetrics).
func NewDriver(logger log.Logger, reg prometheus.Registerer) *Driver {
	return &Driver{
		logger:       logger,
		reg:          reg,
		event:        metrics.NewReconstructionMetrics(reg),
		stageMetrics: map[string]*metrics.StageMetrics{},
	}
}

// Event is the per-event input handed to RunOnce: the object store
// already populated by an input adapter (out of scope per spec §1) plus
// an identifying id used for log scoping.
type Event struct {
	Store *objstore.Store
	ID    uint64
}

// Result is RunOnce's output: the supplemented event-level summary
// statistics described in SPEC_FULL.md's "Supplemented features".
type Result struct {
	PFOCount          int
	TotalEnergy       float64
	ChargedPFOCount   int
	NeutralPFOCount   int
	ClustersConsumed  int
	TracksConsumed    int
	HitsConsumed      int
}

// AddStage appends stage under name to the driver's configured order
// and registers its per-stage duration/error/run counters.
func (d *Driver) AddStage(name string, stage engine.Stage) {
	d.stages = append(d.stages, namedStage{name: name, stage: stage})
	d.stageMetrics[name] = metrics.NewStageMetrics(d.reg, name)
}

// ReadSettingsAndInitialize runs readSettings then initialize on every
// configured stage, in order, failing fast on the first error (spec
// §6's stage contract, applied once before any event is processed).
func (d *Driver) ReadSettingsAndInitialize(cfg config.ConfigHandle) error {
	for _, ns := range d.stages {
		if err := ns.stage.ReadSettings(cfg); err != nil {
			return fmt.Errorf("%s: readSettings: %w", ns.name, err)
		}
		if err := ns.stage.Initialize(); err != nil {
			return fmt.Errorf("%s: initialize: %w", ns.name, err)
		}
	}
	return nil
}

// RunOnce runs every configured stage once against event's store, in
// declared order. Any stage error aborts the event: the store is
// restored to its pre-event snapshot (spec §5/§7's rollback guarantee)
// and the error is returned. On success it returns the supplemented
// event-level summary statistics.
func (d *Driver) RunOnce(event *Event) (Result, error) {
	store := event.Store
	snap := store.Snapshot()
	logger := log.ForEvent(d.logger, "pipeline", event.ID)

	for _, ns := range d.stages {
		rc := &engine.RunContext{Store: store, Log: logger, EventID: event.ID}
		start := time.Now()
		status, err := ns.stage.Run(rc)
		d.stageMetrics[ns.name].Observe(time.Since(start), err)

		if err != nil {
			logger.Error("stage failed, aborting event",
				zap.String("stage", ns.name), zap.Error(err))
			store.Restore(snap)
			return Result{}, fmt.Errorf("%s: %w", ns.name, err)
		}
		if status == engine.StatusNotApplicable {
			logger.Info("stage not applicable", zap.String("stage", ns.name))
		}
	}

	result := summarize(store)
	d.event.PFOCount.Observe(float64(result.PFOCount))
	d.event.PFOEnergy.Observe(result.TotalEnergy)
	return result, nil
}

func summarize(store *objstore.Store) Result {
	var result Result
	for _, ph := range store.AllPFOs() {
		p, ok := store.PFO(ph)
		if !ok {
			continue
		}
		result.PFOCount++
		result.TotalEnergy += p.Energy
		if p.Charge != 0 {
			result.ChargedPFOCount++
		} else {
			result.NeutralPFOCount++
		}
	}
	result.ClustersConsumed = len(store.AllClusters())
	result.TracksConsumed = len(store.AllTracks())
	result.HitsConsumed = len(store.AllHits())
	return result
}

// MCConfusion is one PFO's reconstructed-vs-true energy residual, the
// observer-only MC-truth confusion accounting SPEC_FULL.md's
// supplemented-features section describes.
type MCConfusion struct {
	PFO              objstore.Handle[objstore.ParticleFlowObject]
	TrueEnergy       float64
	ReconstructedEnergy float64
	Residual         float64
}

// MCConfusionReport walks every PFO's constituent tracks' MC links (if
// any) and reports the reconstructed-vs-true energy residual. A PFO
// with no MC-linked constituent is skipped entirely; absent MC truth
// short-circuits the whole pass to an empty report (spec §9: "treat MC
// hooks as pure observers").
func MCConfusionReport(store *objstore.Store) []MCConfusion {
	var out []MCConfusion
	for _, ph := range store.AllPFOs() {
		p, ok := store.PFO(ph)
		if !ok {
			continue
		}
		var trueEnergy float64
		found := false
		for th := range p.Tracks {
			t, ok := store.Track(th)
			if !ok || t.MCParticle.IsZero() {
				continue
			}
			mc, ok := store.MCParticle(t.MCParticle)
			if !ok {
				continue
			}
			trueEnergy += mc.Energy
			found = true
		}
		if !found {
			continue
		}
		out = append(out, MCConfusion{
			PFO:                 ph,
			TrueEnergy:          trueEnergy,
			ReconstructedEnergy: p.Energy,
			Residual:            p.Energy - trueEnergy,
		})
	}
	return out
}
