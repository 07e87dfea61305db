// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fragment implements fragment removal (spec §4.H): three
// parallel flows (main, neutral, photon) that each build a contact map
// of daughter-to-candidate-parent clusters and repeatedly merge the
// single highest-evidence pair until none clears minEvidence or
// nMaxPasses is reached.
package fragment

import (
	"sort"

	"go.uber.org/zap"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
)

// Flow names one of spec §4.H's three parallel passes.
type Flow int

const (
	FlowMain Flow = iota
	FlowNeutral
	FlowPhoton
)

// Settings is one flow's cut table; the three flows differ only in
// these numbers (spec §4.H's opening line).
type Settings struct {
	NMaxPasses int

	MinDaughterCaloHits       int
	MinDaughterHadronicEnergy float64

	ContactCutMaxDistance float64
	NContactLayersCut     int
	ConeFractionCut       float64
	CloseHitFraction1Cut  float64
	CloseHitFraction2Cut  float64

	ContactWeight  float64
	ConeWeight     float64
	DistanceWeight float64
	MinEvidence    float64

	ConeCosineHalfAngle float64

	// Photon-only cuts (spec §4.H's closing "Photon-like test").
	EcalNLayers            uint32
	PhotonLikeMaxInnerLayer uint32
	MinRadialDirCos        float64
	MaxShowerProfileStart  float64
	MaxShowerProfileDiscrepancy float64
}

func defaultSettings() Settings {
	return Settings{
		NMaxPasses:                10,
		MinDaughterCaloHits:       1,
		MinDaughterHadronicEnergy: 0,
		ContactCutMaxDistance:     50,
		NContactLayersCut:         1,
		ConeFractionCut:           0.3,
		CloseHitFraction1Cut:      0.2,
		CloseHitFraction2Cut:      0.1,
		ContactWeight:             1.0,
		ConeWeight:                1.0,
		DistanceWeight:            1.0,
		MinEvidence:               0.5,
		ConeCosineHalfAngle:       0.9,
	}
}

// DefaultMainSettings is the hadronic-fragment flow's cut table.
func DefaultMainSettings() Settings { return defaultSettings() }

// DefaultNeutralSettings tightens the hit-count/energy floors for
// neutral-cluster fragments.
func DefaultNeutralSettings() Settings {
	s := defaultSettings()
	s.MinDaughterCaloHits = 2
	s.MinDaughterHadronicEnergy = 0.1
	return s
}

// DefaultPhotonSettings additionally gates on the photon-like shower
// shape test.
func DefaultPhotonSettings() Settings {
	s := defaultSettings()
	s.EcalNLayers = 30
	s.PhotonLikeMaxInnerLayer = 4
	s.MinRadialDirCos = 0.9
	s.MaxShowerProfileStart = 10
	s.MaxShowerProfileDiscrepancy = 5
	return s
}

func (s *Settings) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetInt(config.OptNMaxPasses); err != nil {
		return err
	} else if ok {
		s.NMaxPasses = v
	}
	if v, ok, err := cfg.GetInt(config.OptMinDaughterCaloHits); err != nil {
		return err
	} else if ok {
		s.MinDaughterCaloHits = v
	}
	if v, ok, err := cfg.GetFloat64(config.OptMinDaughterHadronicEnergy); err != nil {
		return err
	} else if ok {
		s.MinDaughterHadronicEnergy = v
	}
	return nil
}

// photonLike is spec §4.H's closing photon-like test.
func (s *Settings) photonLike(c *objstore.Cluster) bool {
	if c.InnerLayer() >= s.EcalNLayers {
		return false
	}
	if c.InnerLayer() >= s.PhotonLikeMaxInnerLayer {
		return false
	}
	fr := c.FitToAllHits()
	if !fr.Success || fr.RadialDirCos <= s.MinRadialDirCos {
		return false
	}
	prof := c.ShowerProfile()
	return prof.Start < s.MaxShowerProfileStart && prof.Discrepancy < s.MaxShowerProfileDiscrepancy
}

// contact is a (daughter, parent) candidate pair with its evidence score.
type contact struct {
	daughter, parent objstore.Handle[objstore.Cluster]
	evidence         float64
	parentHadEnergy  float64
}

// Stage is one fragment-removal flow.
type Stage struct {
	flow        Flow
	settings    Settings
	initialized bool
}

func NewStage(flow Flow) *Stage {
	var s Settings
	switch flow {
	case FlowNeutral:
		s = DefaultNeutralSettings()
	case FlowPhoton:
		s = DefaultPhotonSettings()
	default:
		s = DefaultMainSettings()
	}
	return &Stage{flow: flow, settings: s}
}

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error { return s.settings.ReadSettings(cfg) }

func (s *Stage) Initialize() error {
	if s.settings.NMaxPasses <= 0 {
		return errs.New(errs.InvalidParameter, "fragment: NMaxPasses must be positive")
	}
	s.initialized = true
	return nil
}

func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "fragment: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "FragmentRemoval")

	merges := 0
	for pass := 0; pass < s.settings.NMaxPasses; pass++ {
		contacts := s.buildContactMap(store)
		if len(contacts) == 0 {
			break
		}
		best := pickBest(contacts)
		if best == nil || best.evidence < s.settings.MinEvidence {
			break
		}
		if err := store.MergeAndDelete(best.parent, best.daughter); err != nil {
			logger.Info("fragment merge failed, skipping pair", zap.Error(err))
			continue
		}
		if pc, ok := store.Cluster(best.parent); ok {
			fit.UpdateDerivedState(store, pc)
		}
		merges++
	}

	logger.Info("fragment removal complete", zap.Int("flow", int(s.flow)), zap.Int("merges", merges))
	return engine.StatusSuccess, nil
}

// isCandidateDaughter gates a cluster out of daughter consideration:
// tracked, too few hits, too little hadronic energy, or (photon flow
// only) not photon-like (spec §4.H step 1).
func (s *Stage) isCandidateDaughter(c *objstore.Cluster) bool {
	if c.Tracks.Len() > 0 {
		return false
	}
	if c.NHits() < s.settings.MinDaughterCaloHits {
		return false
	}
	if c.EnergyHadronic() < s.settings.MinDaughterHadronicEnergy {
		return false
	}
	if s.flow == FlowPhoton && !s.photonLike(c) {
		return false
	}
	return true
}

func (s *Stage) buildContactMap(store *objstore.Store) []contact {
	handles := store.AllClusters()
	var out []contact
	for _, dh := range handles {
		daughter, ok := store.Cluster(dh)
		if !ok || !s.isCandidateDaughter(daughter) {
			continue
		}
		for _, ph := range handles {
			if ph == dh {
				continue
			}
			parent, ok := store.Cluster(ph)
			if !ok {
				continue
			}
			c, ok := s.evaluatePair(store, dh, daughter, ph, parent)
			if ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// evaluatePair is spec §4.H steps 2-3.
func (s *Stage) evaluatePair(store *objstore.Store, dh objstore.Handle[objstore.Cluster], daughter *objstore.Cluster, ph objstore.Handle[objstore.Cluster], parent *objstore.Cluster) (contact, bool) {
	details := fit.ClusterContactDetails(store, daughter, parent, s.settings.ContactCutMaxDistance)

	var coneFrac float64
	if pFit := fit.FitLayers(store, parent, parent.InnerLayer(), parent.OuterLayer()); pFit.Success {
		if apex, ok := parent.CentroidAt(parent.InnerLayer()); ok {
			coneFrac = fit.FractionOfHitsInCone(store, daughter, apex, pFit.Direction, s.settings.ConeCosineHalfAngle)
		}
	}

	closeHitFraction1 := details.ContactFraction
	closeHitFraction2 := closeHitFraction1 * closeHitFraction1

	qualifies := details.NContactLayers > s.settings.NContactLayersCut ||
		coneFrac > s.settings.ConeFractionCut ||
		closeHitFraction1 > s.settings.CloseHitFraction1Cut ||
		closeHitFraction2 > s.settings.CloseHitFraction2Cut
	if !qualifies {
		return contact{}, false
	}

	contactEvidence := piecewise(float64(details.NContactLayers), 0, float64(s.settings.NContactLayersCut), 1, 5)
	coneEvidence := piecewise(coneFrac, 0, s.settings.ConeFractionCut, 1, 1)
	distanceEvidence := 1 - piecewise(float64(details.NContactLayers), 0, 0, 1, float64(daughter.NLayersSpanned()))

	evidence := s.settings.ContactWeight*contactEvidence +
		s.settings.ConeWeight*coneEvidence +
		s.settings.DistanceWeight*distanceEvidence

	return contact{
		daughter:        dh,
		parent:          ph,
		evidence:        evidence,
		parentHadEnergy: parent.EnergyHadronic(),
	}, true
}

// piecewise is the piecewise-linear ramp spec §4.H names without fixing
// an exact form: loY at or below loX, hiY at or above hiX, linear
// between. When hiX <= loX it is a step from loY to hiY at v == hiX.
func piecewise(v, loX, hiX, loY, hiY float64) float64 {
	if hiX <= loX {
		if v >= hiX {
			return hiY
		}
		return loY
	}
	if v <= loX {
		return loY
	}
	if v >= hiX {
		return hiY
	}
	frac := (v - loX) / (hiX - loX)
	return loY + frac*(hiY-loY)
}

// pickBest is spec §4.H step 4: globally highest evidence, ties broken
// by highest parent hadronic energy, then by a deterministic identity
// tie-break.
func pickBest(contacts []contact) *contact {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		if a.evidence != b.evidence {
			return a.evidence > b.evidence
		}
		if a.parentHadEnergy != b.parentHadEnergy {
			return a.parentHadEnergy > b.parentHadEnergy
		}
		if a.daughter.Index() != b.daughter.Index() {
			return a.daughter.Index() < b.daughter.Index()
		}
		return a.parent.Index() < b.parent.Index()
	})
	if len(contacts) == 0 {
		return nil
	}
	return &contacts[0]
}
