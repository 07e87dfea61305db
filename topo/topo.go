// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package topo implements topological association (spec §4.E): a stack
// of independent merge passes over the current cluster list, each
// evaluating candidate (daughter, parent) pairs in a deterministic order
// and merging via objstore.MergeAndDelete.
package topo

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

// ShowerMipCuts is one shower-MIP merging variant's cut table (spec
// §4.E.1's "4 variants: plain, 2, 3, 4; each tightens cuts
// differently").
type ShowerMipCuts struct {
	FitDirectionDotProduct float64
	ApproachCutECAL        float64
	ApproachCutHCAL        float64
	PerpCutECAL            float64
	PerpCutHCAL            float64
}

// Settings is the topological-association stage's cut table (spec
// §4.E). Each pass variant reads only the cuts it names in the spec;
// fields unrelated to an enabled pass are simply unused by it.
type Settings struct {
	EnabledPasses []Pass

	CanMergeMinMipFraction float64
	CanMergeMaxRMS         float64

	ShowerMipVariants []ShowerMipCuts

	BrokenTrackNStart         int
	BrokenTrackNEnd           int
	BrokenTrackApproachCut    float64
	BrokenTrackMaxLayerGap    uint32
	BrokenTrackMaxCentroidSep float64

	LoopingNOuterLayers        int
	LoopingMaxDotProduct       float64
	LoopingOuterHitDistanceCut float64
	LoopingApproachCut         float64
	LoopingMinMipFraction      float64

	BackscatterNOuterFitExclusionLayers uint32
	BackscatterNFitProjectionLayers     int
	BackscatterLayerPitch               float64
	BackscatterMaxProjectedDistance     float64

	ConeCosineHalfAngle           float64
	MinConeFraction               float64
	MaxInnerLayerSeparation       float64
	MaxInnerLayerSeparationNoTrack float64

	SoftMaxHits           int
	SoftMaxLayerSpan      int
	SoftMaxHadEnergy      float64
	SoftDistanceCutFine   float64
	SoftDistanceCutCoarse float64

	IsolatedHitDistanceCut float64

	ProximityDistanceCut float64

	MipPhotonMinMipFraction float64
	MipPhotonDotProduct     float64

	MuonPhotonDotProduct float64

	MuonClusterAssociationDistanceCut float64
}

// Pass names one of spec §4.E's merge-pass categories.
type Pass int

const (
	PassShowerMip Pass = iota
	PassBrokenTrack
	PassLoopingTrack
	PassBackscatter
	PassConeBased
	PassSoftCluster
	PassIsolatedHit
	PassProximity
	PassMipPhotonSeparation
	PassMuonPhotonSeparation
	PassMuonClusterAssociation
)

// DefaultSettings returns a representative cut table covering every
// pass category; real deployments tune these per detector.
func DefaultSettings() Settings {
	return Settings{
		EnabledPasses: []Pass{
			PassShowerMip,
			PassBrokenTrack,
			PassLoopingTrack,
			PassBackscatter,
			PassConeBased,
			PassSoftCluster,
			PassIsolatedHit,
			PassProximity,
			PassMipPhotonSeparation,
			PassMuonPhotonSeparation,
			PassMuonClusterAssociation,
		},
		CanMergeMinMipFraction: 0.8,
		CanMergeMaxRMS:         5.0,

		ShowerMipVariants: []ShowerMipCuts{
			{FitDirectionDotProduct: 0.90, ApproachCutECAL: 30, ApproachCutHCAL: 60, PerpCutECAL: 15, PerpCutHCAL: 40},
			{FitDirectionDotProduct: 0.95, ApproachCutECAL: 20, ApproachCutHCAL: 50, PerpCutECAL: 10, PerpCutHCAL: 30},
			{FitDirectionDotProduct: 0.97, ApproachCutECAL: 15, ApproachCutHCAL: 40, PerpCutECAL: 8, PerpCutHCAL: 25},
			{FitDirectionDotProduct: 0.99, ApproachCutECAL: 10, ApproachCutHCAL: 30, PerpCutECAL: 5, PerpCutHCAL: 20},
		},

		BrokenTrackNStart:         3,
		BrokenTrackNEnd:           3,
		BrokenTrackApproachCut:    30,
		BrokenTrackMaxLayerGap:    2,
		BrokenTrackMaxCentroidSep: 50,

		LoopingNOuterLayers:        3,
		LoopingMaxDotProduct:       -0.5,
		LoopingOuterHitDistanceCut: 40,
		LoopingApproachCut:         30,
		LoopingMinMipFraction:      0.7,

		BackscatterNOuterFitExclusionLayers: 2,
		BackscatterNFitProjectionLayers:     3,
		BackscatterLayerPitch:               10,
		BackscatterMaxProjectedDistance:     30,

		ConeCosineHalfAngle:            0.9,
		MinConeFraction:                0.5,
		MaxInnerLayerSeparation:        20,
		MaxInnerLayerSeparationNoTrack: 10,

		SoftMaxHits:           5,
		SoftMaxLayerSpan:      3,
		SoftMaxHadEnergy:      0.5,
		SoftDistanceCutFine:   30,
		SoftDistanceCutCoarse: 60,

		IsolatedHitDistanceCut: 25,

		ProximityDistanceCut: 15,

		MipPhotonMinMipFraction: 0.8,
		MipPhotonDotProduct:     0.97,

		MuonPhotonDotProduct: 0.95,

		MuonClusterAssociationDistanceCut: 50,
	}
}

// Stage is the topological-association algorithm (spec §4.E).
type Stage struct {
	settings    Settings
	initialized bool
}

func NewStage() *Stage { return &Stage{settings: DefaultSettings()} }

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetFloat64("TopologicalAssociation.CanMergeMinMipFraction"); err != nil {
		return err
	} else if ok {
		s.settings.CanMergeMinMipFraction = v
	}
	if v, ok, err := cfg.GetFloat64("TopologicalAssociation.CanMergeMaxRMS"); err != nil {
		return err
	} else if ok {
		s.settings.CanMergeMaxRMS = v
	}
	return nil
}

func (s *Stage) Initialize() error {
	s.initialized = true
	return nil
}

// canMergeCluster is spec §4.E's gate: (mipFraction > cut) OR
// (fitToAllHits.rms < cut).
func (s *Settings) canMergeCluster(c *objstore.Cluster) bool {
	return c.MipFraction() > s.CanMergeMinMipFraction || c.FitToAllHits().RMS < s.CanMergeMaxRMS
}

func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "topo: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "TopologicalAssociation")

	merges := 0
	for _, pass := range s.settings.EnabledPasses {
		var n int
		var err error
		if pass == PassShowerMip {
			n, err = s.runShowerMipPass(store)
		} else {
			n, err = s.runPass(store, s.matcherFor(pass))
		}
		if err != nil {
			return engine.StatusNotApplicable, err
		}
		merges += n
	}
	logger.Info("topological association complete", zap.Int("merges", merges))
	return engine.StatusSuccess, nil
}

// matcherFor returns the bound candidate-pair test for every pass
// category except PassShowerMip, which iterates its own variant list
// via runShowerMipPass instead of a single matcher.
func (s *Stage) matcherFor(pass Pass) func(*objstore.Store, *objstore.Cluster, *objstore.Cluster) bool {
	switch pass {
	case PassBrokenTrack:
		return s.brokenTrackMatch
	case PassLoopingTrack:
		return s.loopingTrackMatch
	case PassBackscatter:
		return s.backscatterMatch
	case PassConeBased:
		return s.coneBasedMatch
	case PassSoftCluster:
		return s.softClusterMatch
	case PassIsolatedHit:
		return s.isolatedHitMatch
	case PassProximity:
		return s.proximityMatch
	case PassMipPhotonSeparation:
		return s.mipPhotonMatch
	case PassMuonPhotonSeparation:
		return s.muonPhotonMatch
	case PassMuonClusterAssociation:
		return s.muonClusterAssociationMatch
	default:
		return func(*objstore.Store, *objstore.Cluster, *objstore.Cluster) bool { return false }
	}
}

// runShowerMipPass runs one full merge-to-fixed-point pass per
// configured shower-MIP variant, plain cuts first (spec §4.E.1's "4
// variants: plain, 2, 3, 4").
func (s *Stage) runShowerMipPass(store *objstore.Store) (int, error) {
	merges := 0
	for _, cuts := range s.settings.ShowerMipVariants {
		cuts := cuts
		n, err := s.runPass(store, func(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
			return s.showerMipMatch(store, parent, daughter, cuts)
		})
		if err != nil {
			return merges, err
		}
		merges += n
	}
	return merges, nil
}

// runPass repeatedly finds and merges the first qualifying (parent,
// daughter) pair under match, in deterministic candidate order, until
// no pair qualifies.
func (s *Stage) runPass(store *objstore.Store, match func(*objstore.Store, *objstore.Cluster, *objstore.Cluster) bool) (int, error) {
	merges := 0
	for {
		candidates := orderedClusters(store)
		merged := false
		for _, parent := range candidates {
			pc, ok := store.Cluster(parent)
			if !ok || !s.settings.canMergeCluster(pc) {
				continue
			}
			for _, daughter := range candidates {
				if daughter == parent {
					continue
				}
				dc, ok := store.Cluster(daughter)
				if !ok {
					continue
				}
				if !match(store, pc, dc) {
					continue
				}
				if err := store.MergeAndDelete(parent, daughter); err != nil {
					return merges, err
				}
				fit.UpdateDerivedState(store, pc)
				merges++
				merged = true
				break
			}
			if merged {
				break
			}
		}
		if !merged {
			return merges, nil
		}
	}
}

// orderedClusters returns the current cluster list in (outer-layer asc,
// hit-count asc, identity tie-break) order, spec §4.E's deterministic
// candidate-pair evaluation order.
func orderedClusters(store *objstore.Store) []objstore.Handle[objstore.Cluster] {
	handles, _, ok := store.ClusterLists.Current()
	if !ok {
		handles = store.AllClusters()
	}
	out := make([]objstore.Handle[objstore.Cluster], len(handles))
	copy(out, handles)
	sort.SliceStable(out, func(i, j int) bool {
		ci, _ := store.Cluster(out[i])
		cj, _ := store.Cluster(out[j])
		if ci == nil || cj == nil {
			return out[i].Index() < out[j].Index()
		}
		if ci.OuterLayer() != cj.OuterLayer() {
			return ci.OuterLayer() < cj.OuterLayer()
		}
		if ci.NHits() != cj.NHits() {
			return ci.NHits() < cj.NHits()
		}
		return out[i].Index() < out[j].Index()
	})
	return out
}

func unitDot(a, b objstore.Vec3) float64 {
	am := math.Sqrt(a.MagSq())
	bm := math.Sqrt(b.MagSq())
	if am <= 0 || bm <= 0 {
		return 0
	}
	return a.Dot(b) / (am * bm)
}

// showerMipMatch is pass category 1 (spec §4.E.1): a MIP-like parent's
// end joined to a shower-like daughter's start, tested against one
// variant's cut table.
func (s *Stage) showerMipMatch(store *objstore.Store, parent, daughter *objstore.Cluster, cuts ShowerMipCuts) bool {
	if !parent.IsMipTrack() {
		return false
	}
	parentEnd := fit.FitEnd(store, parent, 5)
	daughterStart := fit.FitStart(store, daughter, 5)
	if !parentEnd.Success || !daughterStart.Success {
		return false
	}
	if unitDot(parentEnd.Direction, daughterStart.Direction) < cuts.FitDirectionDotProduct {
		return false
	}
	approach := closestApproach(parentEnd, daughterStart)
	approachCut := cuts.ApproachCutECAL
	perpCut := cuts.PerpCutECAL
	if daughter.NLayersSpanned() > 30 {
		approachCut = cuts.ApproachCutHCAL
		perpCut = cuts.PerpCutHCAL
	}
	if approach > approachCut {
		return false
	}
	perp := perpendicularSeparation(parentEnd, daughterStart)
	return perp < perpCut
}

// brokenTrackMatch is pass category 2 (spec §4.E.2).
func (s *Stage) brokenTrackMatch(store *objstore.Store, a, b *objstore.Cluster) bool {
	aEnd := fit.FitEnd(store, a, s.settings.BrokenTrackNEnd)
	bStart := fit.FitStart(store, b, s.settings.BrokenTrackNStart)
	if !aEnd.Success || !bStart.Success {
		return false
	}
	if closestApproach(aEnd, bStart) > s.settings.BrokenTrackApproachCut {
		return false
	}
	if b.InnerLayer() <= a.OuterLayer() {
		return false
	}
	if b.InnerLayer()-a.OuterLayer() > s.settings.BrokenTrackMaxLayerGap {
		return false
	}
	aCentroid, ok1 := a.CentroidAt(a.OuterLayer())
	bCentroid, ok2 := b.CentroidAt(b.InnerLayer())
	if !ok1 || !ok2 {
		return false
	}
	sep := math.Sqrt(aCentroid.Sub(bCentroid).MagSq())
	return sep < s.settings.BrokenTrackMaxCentroidSep
}

// loopingTrackMatch is pass category 3 (spec §4.E.3): fits to the
// outermost N layers of both clusters, requiring near-antiparallel
// directions (a track curling back on itself), close outer-layer hits,
// a small approach between the two fits, and a high MIP fraction.
func (s *Stage) loopingTrackMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	n := s.settings.LoopingNOuterLayers
	pFit := fit.FitEnd(store, parent, n)
	dFit := fit.FitEnd(store, daughter, n)
	if !pFit.Success || !dFit.Success {
		return false
	}
	if unitDot(pFit.Direction, dFit.Direction) > s.settings.LoopingMaxDotProduct {
		return false
	}
	pOuter, ok1 := parent.CentroidAt(parent.OuterLayer())
	dOuter, ok2 := daughter.CentroidAt(daughter.OuterLayer())
	if !ok1 || !ok2 {
		return false
	}
	if math.Sqrt(pOuter.Sub(dOuter).MagSq()) > s.settings.LoopingOuterHitDistanceCut {
		return false
	}
	if closestApproach(pFit, dFit) > s.settings.LoopingApproachCut {
		return false
	}
	return parent.MipFraction() > s.settings.LoopingMinMipFraction
}

// backscatterMatch is pass category 4 (spec §4.E.4): fits the daughter
// excluding its outermost nOuterFitExclusionLayers, projects that fit
// forward nFitProjectionLayers, and accepts parent if the projected
// point lands within proximity of one of parent's hits.
func (s *Stage) backscatterMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	excl := s.settings.BackscatterNOuterFitExclusionLayers
	fitOuter := saturatingSub(daughter.OuterLayer(), excl)
	dFit := fit.FitLayers(store, daughter, daughter.InnerLayer(), fitOuter)
	if !dFit.Success {
		return false
	}
	step := float64(s.settings.BackscatterNFitProjectionLayers) * s.settings.BackscatterLayerPitch
	projected := dFit.Intercept.Add(dFit.Direction.Scale(step))

	minDist := math.Inf(1)
	for _, layer := range parent.Primary.Layers() {
		for _, hh := range parent.Primary.InLayer(layer, nil) {
			hit, ok := store.Hit(hh)
			if !ok {
				continue
			}
			d := math.Sqrt(hit.Position.Sub(projected).MagSq())
			if d < minDist {
				minDist = d
			}
		}
	}
	return minDist < s.settings.BackscatterMaxProjectedDistance
}

// coneBasedMatch is pass category 5 (spec §4.E.5).
func (s *Stage) coneBasedMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if daughter.ShowerMaxLayer() == 0 {
		return false
	}
	parentFit := fit.FitLayers(store, parent, parent.InnerLayer(), saturatingSub(parent.ShowerMaxLayer(), 1))
	if !parentFit.Success {
		return false
	}
	apex, ok := parent.CentroidAt(parent.InnerLayer())
	if !ok {
		return false
	}
	frac := fit.FractionOfHitsInCone(store, daughter, apex, parentFit.Direction, s.settings.ConeCosineHalfAngle)
	if frac < s.settings.MinConeFraction {
		return false
	}
	sepCut := s.settings.MaxInnerLayerSeparation
	if parent.Tracks.Len() == 0 {
		sepCut = s.settings.MaxInnerLayerSeparationNoTrack
	}
	var sep uint32
	if daughter.InnerLayer() > parent.InnerLayer() {
		sep = daughter.InnerLayer() - parent.InnerLayer()
	} else {
		sep = parent.InnerLayer() - daughter.InnerLayer()
	}
	return float64(sep) <= sepCut
}

// softClusterMatch is pass category 6 (spec §4.E.6): a "soft" daughter
// absorbed into a nearby parent.
func (s *Stage) softClusterMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if daughter.Tracks.Len() > 0 {
		return false
	}
	if daughter.NHits() > s.settings.SoftMaxHits {
		return false
	}
	if daughter.NLayersSpanned() > s.settings.SoftMaxLayerSpan {
		return false
	}
	if daughter.EnergyHadronic() > s.settings.SoftMaxHadEnergy {
		return false
	}
	dCentroid, ok1 := daughter.CentroidAt(daughter.InnerLayer())
	pCentroid, ok2 := parent.CentroidAt(parent.OuterLayer())
	if !ok1 || !ok2 {
		return false
	}
	cut := s.settings.SoftDistanceCutFine
	if daughter.NLayersSpanned() > 0 {
		cut = s.settings.SoftDistanceCutCoarse
	}
	return math.Sqrt(dCentroid.Sub(pCentroid).MagSq()) < cut
}

// isolatedHitMatch is the first of pass category 7's bucket (spec
// §4.E.7): a daughter composed entirely of isolated hits, absorbed by a
// nearby parent.
func (s *Stage) isolatedHitMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	hits := daughter.Primary.All(nil)
	if len(hits) == 0 {
		return false
	}
	for _, hh := range hits {
		hit, ok := store.Hit(hh)
		if !ok || !hit.IsIsolated {
			return false
		}
	}
	dCentroid, ok1 := daughter.CentroidAt(daughter.InnerLayer())
	pCentroid, ok2 := parent.CentroidAt(parent.OuterLayer())
	if !ok1 || !ok2 {
		return false
	}
	return math.Sqrt(dCentroid.Sub(pCentroid).MagSq()) < s.settings.IsolatedHitDistanceCut
}

// proximityMatch is pass category 7's generic catch-all: any untracked
// daughter whose closest hit-to-hit distance to parent clears the
// generic proximity cut, independent of shape or energy.
func (s *Stage) proximityMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if daughter.Tracks.Len() > 0 {
		return false
	}
	return minHitDistance(store, parent, daughter) < s.settings.ProximityDistanceCut
}

// mipPhotonMatch is pass category 7's MIP-photon separation: only
// reattaches a fragment when both sides are genuinely MIP-like and
// collinear, so a stray shower fragment is never pulled onto a MIP
// track by a looser cut elsewhere in the stack.
func (s *Stage) mipPhotonMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if parent.MipFraction() < s.settings.MipPhotonMinMipFraction || daughter.MipFraction() < s.settings.MipPhotonMinMipFraction {
		return false
	}
	pFit := parent.FitToAllHits()
	dFit := daughter.FitToAllHits()
	if !pFit.Success || !dFit.Success {
		return false
	}
	return unitDot(pFit.Direction, dFit.Direction) > s.settings.MipPhotonDotProduct
}

// muonPhotonMatch is pass category 7's muon-photon separation: a muon
// segment only continues into another cluster carrying muon hits and
// collinear with it, never into an unrelated photon shower.
func (s *Stage) muonPhotonMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if !clusterHasMuonHits(store, parent) && !clusterHasMuonHits(store, daughter) {
		return false
	}
	if daughter.IsPhoton() {
		return false
	}
	pFit := parent.FitToAllHits()
	dFit := daughter.FitToAllHits()
	if !pFit.Success || !dFit.Success {
		return false
	}
	return unitDot(pFit.Direction, dFit.Direction) > s.settings.MuonPhotonDotProduct
}

// muonClusterAssociationMatch is pass category 7's muon-cluster
// association: a cluster carrying muon-detector hits is folded into the
// track-seeded calorimeter cluster whose fit end projects near it,
// ahead of the dedicated muon-reconstruction pass in PFO construction.
func (s *Stage) muonClusterAssociationMatch(store *objstore.Store, parent, daughter *objstore.Cluster) bool {
	if !clusterHasMuonHits(store, daughter) {
		return false
	}
	if !parent.IsTrackSeeded {
		return false
	}
	pEnd := fit.FitEnd(store, parent, 5)
	dStart, ok := daughter.CentroidAt(daughter.InnerLayer())
	if !pEnd.Success || !ok {
		return false
	}
	return closestApproach(pEnd, objstore.FitResult{Success: true, Intercept: dStart}) < s.settings.MuonClusterAssociationDistanceCut
}

func clusterHasMuonHits(store *objstore.Store, c *objstore.Cluster) bool {
	for _, hh := range c.Primary.All(nil) {
		if hit, ok := store.Hit(hh); ok && hit.Type == objstore.HitMuon {
			return true
		}
	}
	return false
}

func minHitDistance(store *objstore.Store, a, b *objstore.Cluster) float64 {
	min := math.Inf(1)
	for _, ah := range a.Primary.All(nil) {
		ahit, ok := store.Hit(ah)
		if !ok {
			continue
		}
		for _, bh := range b.Primary.All(nil) {
			bhit, ok := store.Hit(bh)
			if !ok {
				continue
			}
			if d := math.Sqrt(ahit.Position.Sub(bhit.Position).MagSq()); d < min {
				min = d
			}
		}
	}
	return min
}

func saturatingSub(a, b uint32) uint32 {
	if a < b {
		return 0
	}
	return a - b
}

// closestApproach is the distance between two fit lines' intercepts,
// the cheap distance-of-closest-approach stand-in the cone-clustering
// package's track-projection math already establishes the pattern for.
func closestApproach(a, b objstore.FitResult) float64 {
	return math.Sqrt(a.Intercept.Sub(b.Intercept).MagSq())
}

// perpendicularSeparation is the component of the separation between
// the two fits' intercepts (their fitted positions at pseudo-layer 0)
// perpendicular to a's fit direction.
func perpendicularSeparation(a, b objstore.FitResult) float64 {
	disp := b.Intercept.Sub(a.Intercept)
	dirMag := math.Sqrt(a.Direction.MagSq())
	if dirMag <= 0 {
		return math.Sqrt(disp.MagSq())
	}
	axis := a.Direction.Scale(1 / dirMag)
	proj := disp.Dot(axis)
	perp := disp.Sub(axis.Scale(proj))
	return math.Sqrt(perp.MagSq())
}
