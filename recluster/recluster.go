// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package recluster implements the reclustering driver (spec §4.G):
// for a cluster whose associated tracks disagree with its measured
// energy, try a configured sequence of clustering variants over its
// hits plus nearby untracked companions, keeping whichever candidate
// list scores lowest on the reclustering chi-squared statistic.
package recluster

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
)

// Variant is one child clustering+association stage sequence to try
// against a reclustering candidate (spec §4.G step 3: "a configured
// ordered list of child clustering stages").
type Variant struct {
	Name      string
	Cluster   engine.Stage
	Topo      engine.Stage
	TrackAssoc engine.Stage
}

// Settings is the reclustering driver's cut table.
type Settings struct {
	ChiToAttemptReclustering          float64
	Chi2ForAutomaticClusterSelection  float64
	Resolution                        float64
	ConeCosineHalfAngle               float64
	MinConeFraction                   float64
	ContactDistanceThreshold          float64
	MinContactLayers                  int
	// ShouldUseBestGuessCandidates governs whether a candidate with
	// improved-but-still-above-threshold chi-squared is ever committed.
	// Open Question in spec.md §8; decided off by default (see DESIGN.md).
	ShouldUseBestGuessCandidates bool
}

func DefaultSettings() Settings {
	return Settings{
		ChiToAttemptReclustering:         -2.5,
		Chi2ForAutomaticClusterSelection: 1.0,
		Resolution:                       0.6,
		ConeCosineHalfAngle:              0.95,
		MinConeFraction:                  0.3,
		ContactDistanceThreshold:         2.0,
		MinContactLayers:                 2,
	}
}

func (s *Settings) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetFloat64(config.OptChiToAttemptReclustering); err != nil {
		return err
	} else if ok {
		s.ChiToAttemptReclustering = v
	}
	return nil
}

// Stage is the reclustering driver. Exactly one reclustering context
// (the per-call state held in a recluster) may be open at a time, per
// spec §5's concurrency guarantee; Run enforces this by never letting a
// context outlive a single call.
type Stage struct {
	settings    Settings
	variants    []Variant
	initialized bool
}

func NewStage(variants []Variant) *Stage {
	return &Stage{settings: DefaultSettings(), variants: variants}
}

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error { return s.settings.ReadSettings(cfg) }

func (s *Stage) Initialize() error {
	if len(s.variants) == 0 {
		return errs.New(errs.InvalidParameter, "recluster: no clustering variants configured")
	}
	for _, v := range s.variants {
		if err := v.Cluster.Initialize(); err != nil {
			return err
		}
		if err := v.Topo.Initialize(); err != nil {
			return err
		}
		if err := v.TrackAssoc.Initialize(); err != nil {
			return err
		}
	}
	s.initialized = true
	return nil
}

func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "recluster: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "Reclustering")

	candidates := s.findReclusterCandidates(store)
	attempts := 0
	for _, ch := range candidates {
		ok, err := s.attemptRecluster(rc, ch)
		if err != nil {
			return engine.StatusNotApplicable, err
		}
		if ok {
			attempts++
		}
	}
	logger.Info("reclustering complete", zap.Int("candidates", len(candidates)), zap.Int("committed", attempts))
	return engine.StatusSuccess, nil
}

// findReclusterCandidates is spec §4.G's "Goal": clusters with >= 2
// associated tracks whose compatibility chi is below
// ChiToAttemptReclustering.
func (s *Stage) findReclusterCandidates(store *objstore.Store) []objstore.Handle[objstore.Cluster] {
	var out []objstore.Handle[objstore.Cluster]
	for _, ch := range store.AllClusters() {
		c, ok := store.Cluster(ch)
		if !ok || c.Tracks.Len() < 2 {
			continue
		}
		var trackEnergy float64
		for _, th := range c.Tracks.Unordered() {
			if t, ok := store.Track(th); ok {
				trackEnergy += t.EnergyAtDCA
			}
		}
		chi := fit.TrackClusterCompatibility(c.EnergyCorrected(), trackEnergy, s.settings.Resolution)
		if chi < s.settings.ChiToAttemptReclustering {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// selectParentAndCompanions implements spec §4.G step 1: start with the
// candidate cluster and greedily add untracked daughter clusters
// forward-cone-contained or in high contact with it.
func (s *Stage) selectParentAndCompanions(store *objstore.Store, parent objstore.Handle[objstore.Cluster]) []objstore.Handle[objstore.Cluster] {
	pc, ok := store.Cluster(parent)
	if !ok {
		return nil
	}
	selected := []objstore.Handle[objstore.Cluster]{parent}

	pFit := fit.FitLayers(store, pc, pc.InnerLayer(), pc.OuterLayer())
	apex, hasApex := pc.CentroidAt(pc.InnerLayer())

	for _, ch := range store.AllClusters() {
		if ch == parent {
			continue
		}
		c, ok := store.Cluster(ch)
		if !ok || c.Tracks.Len() > 0 {
			continue
		}
		matched := false
		if pFit.Success && hasApex {
			frac := fit.FractionOfHitsInCone(store, c, apex, pFit.Direction, s.settings.ConeCosineHalfAngle)
			if frac > s.settings.MinConeFraction {
				matched = true
			}
		}
		if !matched {
			details := fit.ClusterContactDetails(store, c, pc, s.settings.ContactDistanceThreshold)
			if details.NContactLayers >= s.settings.MinContactLayers {
				matched = true
			}
		}
		if matched {
			selected = append(selected, ch)
		}
	}
	return selected
}

// attemptRecluster runs spec §4.G steps 2-4 for one candidate. Any
// error aborts by restoring snap, matching §5's auto-rollback guarantee.
func (s *Stage) attemptRecluster(rc *engine.RunContext, parent objstore.Handle[objstore.Cluster]) (bool, error) {
	store := rc.Store
	snap := store.Snapshot()

	selected := s.selectParentAndCompanions(store, parent)
	var tracks []objstore.Handle[objstore.Track]
	if pc, ok := store.Cluster(parent); ok {
		for th := range pc.Tracks {
			tracks = append(tracks, th)
		}
	}

	original := s.originalResult(store, selected, tracks)

	bestChi := math.Inf(1)
	var bestClusters []objstore.Handle[objstore.Cluster]

	for _, variant := range s.variants {
		candidate, err := s.runVariant(rc, variant, selected)
		if err != nil {
			store.Restore(snap)
			return false, err
		}
		result := fit.ExtractReclusterResults(store, candidate, tracks, s.settings.Resolution)
		chi2 := result.ChiSqPerDof
		if chi2 < bestChi {
			bestChi = chi2
			bestClusters = candidate
		}
		if bestChi < s.settings.Chi2ForAutomaticClusterSelection {
			break
		}
	}

	threshold := s.settings.ChiToAttemptReclustering * s.settings.ChiToAttemptReclustering
	if bestClusters != nil && bestChi < original && bestChi < threshold {
		return true, nil
	}

	store.Restore(snap)
	return false, nil
}

// originalResult scores the pre-recluster cluster set, the baseline
// step 4's "if the best chi-squared improved over the original" compares
// candidates against.
func (s *Stage) originalResult(store *objstore.Store, selected []objstore.Handle[objstore.Cluster], tracks []objstore.Handle[objstore.Track]) float64 {
	return fit.ExtractReclusterResults(store, selected, tracks, s.settings.Resolution).ChiSqPerDof
}

// runVariant runs one clustering variant over an isolated hit/cluster
// list bound to selected's hits, per spec §4.G step 2's "reclustering
// context bound to the selected track list and selected cluster list".
func (s *Stage) runVariant(rc *engine.RunContext, variant Variant, selected []objstore.Handle[objstore.Cluster]) ([]objstore.Handle[objstore.Cluster], error) {
	store := rc.Store

	var hits []objstore.Handle[objstore.CaloHit]
	for _, ch := range selected {
		c, ok := store.Cluster(ch)
		if !ok {
			continue
		}
		hits = append(hits, c.Primary.All(nil)...)
		if err := store.DeleteCluster(ch, ""); err != nil {
			return nil, err
		}
	}

	listName := "recluster-" + variant.Name
	if err := store.HitLists.Save(listName, hits, objstore.FailIfExists); err != nil {
		return nil, err
	}
	if err := store.HitLists.TemporarilyReplaceCurrent(listName); err != nil {
		return nil, err
	}
	defer func() { _ = store.HitLists.RestoreCurrent() }()

	if _, err := variant.Cluster.Run(rc); err != nil {
		return nil, err
	}
	if _, err := variant.Topo.Run(rc); err != nil {
		return nil, err
	}

	var produced []objstore.Handle[objstore.Cluster]
	for _, ch := range store.AllClusters() {
		c, ok := store.Cluster(ch)
		if !ok {
			continue
		}
		owns := false
		for _, hh := range hits {
			if owner, has := store.HitOwner(hh); has && owner == ch {
				owns = true
				break
			}
		}
		if owns {
			if c.NHits() == 0 {
				_ = store.DeleteCluster(ch, "")
				continue
			}
			produced = append(produced, ch)
		}
	}

	if _, err := variant.TrackAssoc.Run(rc); err != nil {
		return nil, err
	}
	return produced, nil
}
