// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pfo implements particle-flow-object construction (spec
// §4.I): charged PFOs from parentless tracks and their clusters (with kink and V0
// detection folded in before assembly), a dedicated muon pass, and
// neutral-cluster PFOs from whatever trackless clusters remain.
package pfo

import (
	"math"

	"go.uber.org/zap"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
)

// MassWindow is one candidate-decay invariant-mass acceptance window
// (spec §4.I steps 2-3). DaughterMassHypothesis/NeutralMassHypothesis
// are only consulted by kink detection, which must reconstruct a
// distinct parent mass per hypothesis rather than compare one
// mass-of-the-missing-momentum value against every window.
type MassWindow struct {
	Name                  string
	TargetMass            float64
	Tolerance             float64
	ResultPID             int32
	DaughterMassHypothesis float64
	NeutralMassHypothesis  float64
}

// Settings is the PFO-construction stage's cut table.
type Settings struct {
	KinkWindows []MassWindow
	V0Windows   []MassWindow

	MinNeutralClusterEnergy float64
	MuonGenericDistanceCut  float64
}

// DefaultSettings returns the standard kink/V0 mass windows (spec
// §4.I's "pi->mu nu, K->mu nu, Sigma->n pi" / "K0s, Lambda, gamma
// conversion").
func DefaultSettings() Settings {
	const (
		pionMass  = 0.13957
		kaonMass  = 0.49368
		muonMass  = 0.10566
		neutronMass = 0.93957
		lambdaMass  = 1.11568
		k0sMass     = 0.49761
	)
	return Settings{
		KinkWindows: []MassWindow{
			{Name: "pi->mu nu", TargetMass: pionMass, Tolerance: 0.03, ResultPID: 211, DaughterMassHypothesis: muonMass, NeutralMassHypothesis: 0},
			{Name: "K->mu nu", TargetMass: kaonMass, Tolerance: 0.05, ResultPID: 321, DaughterMassHypothesis: muonMass, NeutralMassHypothesis: 0},
			{Name: "Sigma->n pi", TargetMass: neutronMass + pionMass, Tolerance: 0.05, ResultPID: 3222, DaughterMassHypothesis: pionMass, NeutralMassHypothesis: neutronMass},
		},
		V0Windows: []MassWindow{
			{Name: "K0s", TargetMass: k0sMass, Tolerance: 0.02, ResultPID: 310},
			{Name: "Lambda", TargetMass: lambdaMass, Tolerance: 0.02, ResultPID: 3122},
			{Name: "gamma conversion", TargetMass: 0, Tolerance: 0.01, ResultPID: 22},
		},
		MinNeutralClusterEnergy: 0.2,
		MuonGenericDistanceCut:  1.0,
	}
}

func (s *Settings) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetFloat64("PFOConstruction.MinNeutralClusterEnergy"); err != nil {
		return err
	} else if ok {
		s.MinNeutralClusterEnergy = v
	}
	return nil
}

// Stage is the PFO-construction algorithm.
type Stage struct {
	settings    Settings
	initialized bool
}

func NewStage() *Stage { return &Stage{settings: DefaultSettings()} }

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error { return s.settings.ReadSettings(cfg) }

func (s *Stage) Initialize() error {
	s.initialized = true
	return nil
}

func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "pfo: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "PFOConstruction")

	muonTracks := map[objstore.Handle[objstore.Track]]bool{}
	nMuons := s.reconstructMuons(store, muonTracks)

	v0TrackIDs := map[objstore.Handle[objstore.Track]]bool{}
	nV0 := s.findV0s(store, v0TrackIDs)

	nCharged, nKinks := s.buildChargedPFOs(store, muonTracks, v0TrackIDs)
	nNeutral := s.buildNeutralPFOs(store)

	logger.Info("PFO construction complete",
		zap.Int("charged", nCharged), zap.Int("kinks", nKinks),
		zap.Int("v0", nV0), zap.Int("muons", nMuons), zap.Int("neutral", nNeutral))
	return engine.StatusSuccess, nil
}

func matchWindow(windows []MassWindow, mass float64) (MassWindow, bool) {
	for _, w := range windows {
		if math.Abs(mass-w.TargetMass) < w.Tolerance {
			return w, true
		}
	}
	return MassWindow{}, false
}

// buildChargedPFOs is spec §4.I steps 1-2: one PFO per root track (a
// track with no parent) that reaches the calorimeter and can form a
// PFO, after kink-detected daughters are folded into the parent's
// particle-id hypothesis. Tracks consumed by a muon or V0 pass are
// skipped; those passes own their own PFO creation.
func (s *Stage) buildChargedPFOs(store *objstore.Store, consumedByMuon, consumedByV0 map[objstore.Handle[objstore.Track]]bool) (int, int) {
	nPFOs, nKinks := 0, 0
	for _, th := range store.AllTracks() {
		t, ok := store.Track(th)
		if !ok || !t.ReachesCalorimeter || !t.CanFormPFO {
			continue
		}
		if t.Parents.Len() > 0 || consumedByMuon[th] || consumedByV0[th] {
			continue
		}

		pid := t.ParticleIDHypothesis
		mass := t.Mass
		energy := t.EnergyAtDCA
		momentum := t.MomentumAtDCA

		if kink, ok := s.detectKink(store, t); ok {
			pid = kink.ResultPID
			nKinks++
		}

		p := objstore.ParticleFlowObject{
			ParticleID: pid,
			Charge:     t.Charge,
			Mass:       mass,
			Energy:     energy,
			Momentum:   momentum,
		}
		ph, err := store.CreatePFO(p)
		if err != nil {
			continue
		}
		_ = store.AddTrackToPFO(ph, th)
		if cluster, has := t.AssociatedCluster(); has {
			_ = store.AddClusterToPFO(ph, cluster)
		}
		nPFOs++
	}
	return nPFOs, nKinks
}

// detectKink is spec §4.I step 2: a track with exactly one daughter and
// no parent/sibling, testing each configured window's decay hypothesis
// via kinkMass and accepting the first window the reconstructed parent
// mass falls inside.
func (s *Stage) detectKink(store *objstore.Store, t *objstore.Track) (MassWindow, bool) {
	if t.Daughters.Len() != 1 || t.Siblings.Len() != 0 {
		return MassWindow{}, false
	}
	var daughterHandle objstore.Handle[objstore.Track]
	for d := range t.Daughters {
		daughterHandle = d
	}
	daughter, ok := store.Track(daughterHandle)
	if !ok {
		return MassWindow{}, false
	}
	for _, w := range s.settings.KinkWindows {
		mass, ok := kinkMass(t.AtEnd.Momentum, daughter.AtStart.Momentum, w.DaughterMassHypothesis, w.NeutralMassHypothesis)
		if !ok {
			continue
		}
		if math.Abs(mass-w.TargetMass) < w.Tolerance {
			return w, true
		}
	}
	return MassWindow{}, false
}

// kinkMass reconstructs a decaying charged parent's mass from its
// momentum at the kink vertex, the charged daughter's momentum under
// daughterMass, and the undetected neutral's momentum (the vector
// difference) under neutralMass — GetKinkMass from the original PFA
// kink-finding algorithm.
func kinkMass(parentMomentum, daughterMomentum objstore.Vec3, daughterMass, neutralMass float64) (float64, bool) {
	daughterEnergy := math.Sqrt(daughterMomentum.MagSq() + daughterMass*daughterMass)
	neutralMomentum := parentMomentum.Sub(daughterMomentum)
	neutralEnergy := math.Sqrt(neutralMomentum.MagSq() + neutralMass*neutralMass)
	sumEnergy := daughterEnergy + neutralEnergy
	massSq := sumEnergy*sumEnergy - parentMomentum.MagSq()
	if massSq <= 0 {
		return 0, false
	}
	return math.Sqrt(massSq), true
}

// findV0s is spec §4.I step 3: opposite-charge sibling track pairs with
// no parents, invariant mass in a configured window.
func (s *Stage) findV0s(store *objstore.Store, consumed map[objstore.Handle[objstore.Track]]bool) int {
	seen := map[objstore.Handle[objstore.Track]]bool{}
	n := 0
	for _, th := range store.AllTracks() {
		if seen[th] || consumed[th] {
			continue
		}
		t, ok := store.Track(th)
		if !ok || t.Parents.Len() > 0 {
			continue
		}
		for sh := range t.Siblings {
			if seen[sh] {
				continue
			}
			sib, ok := store.Track(sh)
			if !ok || sib.Parents.Len() > 0 || sib.Charge == t.Charge {
				continue
			}
			totalEnergy := t.EnergyAtDCA + sib.EnergyAtDCA
			totalMomentum := t.MomentumAtDCA.Add(sib.MomentumAtDCA)
			massSq := invariantMassSq(totalEnergy, totalMomentum)
			if massSq < 0 {
				continue
			}
			window, ok := matchWindow(s.settings.V0Windows, math.Sqrt(massSq))
			if !ok {
				continue
			}
			p := objstore.ParticleFlowObject{
				ParticleID: window.ResultPID,
				Charge:     0,
				Mass:       math.Sqrt(massSq),
				Energy:     totalEnergy,
				Momentum:   totalMomentum,
			}
			ph, err := store.CreatePFO(p)
			if err != nil {
				continue
			}
			_ = store.AddTrackToPFO(ph, th)
			_ = store.AddTrackToPFO(ph, sh)
			consumed[th], consumed[sh] = true, true
			seen[th], seen[sh] = true, true
			n++
			break
		}
	}
	return n
}

func invariantMassSq(energy float64, momentum objstore.Vec3) float64 {
	return energy*energy - momentum.MagSq()
}

// reconstructMuons is spec §4.I step 4, simplified to the part that
// does not require a dedicated muon-detector geometry service (out of
// scope per §4.A): associate each currently unassociated,
// calorimeter-reaching track whose helix projects close to a trackless
// cluster's centroid, and emit a muon PFO absorbing both.
func (s *Stage) reconstructMuons(store *objstore.Store, consumed map[objstore.Handle[objstore.Track]]bool) int {
	n := 0
	for _, th := range store.AllTracks() {
		t, ok := store.Track(th)
		if !ok || t.HasCluster() || !t.ReachesCalorimeter || !t.CanFormPFO {
			continue
		}
		if math.Abs(float64(t.Charge)) != 1 {
			continue
		}
		best, found := s.nearestTracklessCluster(store, t)
		if !found {
			continue
		}
		p := objstore.ParticleFlowObject{
			ParticleID: 13 * sign(t.Charge),
			Charge:     t.Charge,
			Mass:       0.10566,
			Energy:     t.EnergyAtDCA,
			Momentum:   t.MomentumAtDCA,
		}
		ph, err := store.CreatePFO(p)
		if err != nil {
			continue
		}
		_ = store.AddTrackToPFO(ph, th)
		_ = store.AddClusterToPFO(ph, best)
		_ = store.AssociateTrackCluster(th, best)
		consumed[th] = true
		n++
	}
	return n
}

func sign(c int) int32 {
	if c < 0 {
		return -1
	}
	return 1
}

func (s *Stage) nearestTracklessCluster(store *objstore.Store, t *objstore.Track) (objstore.Handle[objstore.Cluster], bool) {
	mag := math.Sqrt(t.AtECal.Momentum.MagSq())
	if mag <= 0 {
		return objstore.Handle[objstore.Cluster]{}, false
	}
	var best objstore.Handle[objstore.Cluster]
	bestDist := math.Inf(1)
	found := false
	for _, ch := range store.AllClusters() {
		c, ok := store.Cluster(ch)
		if !ok || c.Tracks.Len() > 0 {
			continue
		}
		centroid, ok := c.CentroidAt(c.InnerLayer())
		if !ok {
			continue
		}
		d := math.Sqrt(centroid.Sub(t.AtECal.Position).MagSq())
		if d < s.settings.MuonGenericDistanceCut*100 && d < bestDist {
			bestDist = d
			best = ch
			found = true
		}
	}
	return best, found
}

// buildNeutralPFOs is spec §4.I step 5: remaining trackless clusters
// above MinNeutralClusterEnergy become photon or neutral-hadron PFOs.
func (s *Stage) buildNeutralPFOs(store *objstore.Store) int {
	n := 0
	for _, ch := range store.AllClusters() {
		c, ok := store.Cluster(ch)
		if !ok || c.Tracks.Len() > 0 {
			continue
		}
		if c.EnergyCorrected() < s.settings.MinNeutralClusterEnergy {
			continue
		}
		pid := int32(2112)
		if c.IsPhoton() {
			pid = 22
		}
		centroidIn, _ := c.CentroidAt(c.InnerLayer())
		mag := math.Sqrt(centroidIn.MagSq())
		momentum := objstore.Vec3{}
		if mag > 0 {
			momentum = centroidIn.Scale(c.EnergyCorrected() / mag)
		}
		mass := 0.0
		if pid == 2112 {
			mass = 0.93957
		}
		p := objstore.ParticleFlowObject{
			ParticleID: pid,
			Charge:     0,
			Mass:       mass,
			Energy:     c.EnergyCorrected(),
			Momentum:   momentum,
		}
		ph, err := store.CreatePFO(p)
		if err != nil {
			continue
		}
		_ = store.AddClusterToPFO(ph, ch)
		n++
	}
	return n
}
