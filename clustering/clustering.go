// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clustering

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

// Stage is the cone-clustering algorithm (spec §4.D): the "central,
// educative subsystem" that grows calorimeter clusters layer by layer
// using the composite generic-distance metric in distance.go.
type Stage struct {
	settings    Settings
	initialized bool
}

// NewStage returns an uninitialized cone-clustering stage with default
// settings; ReadSettings/Initialize follow the spec §6 stage contract.
func NewStage() *Stage {
	return &Stage{settings: DefaultSettings()}
}

// NewInwardStage returns the ECAL-photon-finding variant (spec §4.D's
// closing paragraph).
func NewInwardStage() *Stage {
	return &Stage{settings: NewInwardSettings()}
}

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error {
	return s.settings.ReadSettings(cfg)
}

func (s *Stage) Initialize() error {
	if s.settings.GenericDistanceCut <= 0 {
		return errs.New(errs.InvalidParameter, "clustering: GenericDistanceCut must be positive")
	}
	s.initialized = true
	return nil
}

// Run implements the algorithm in spec §4.D: optional track seeding,
// then per-layer previous-layer matching, cluster-property update, and
// same-layer matching, finally dropping empty clusters.
func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "clustering: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "ConeClustering")

	hitHandles, _, ok := store.HitLists.Current()
	if !ok {
		return engine.StatusNotApplicable, nil
	}
	pool := objstore.NewOrderedCaloHitList()
	for _, h := range hitHandles {
		hit, ok := store.Hit(h)
		if !ok {
			continue
		}
		pool.Add(hit.PseudoLayer, h)
	}

	clusters, err := s.seed(store)
	if err != nil {
		return engine.StatusNotApplicable, err
	}

	layers := pool.Layers()
	if s.settings.Inward {
		reverseLayers(layers)
	}

	for _, layer := range layers {
		sorted := s.sortLayerHits(store, pool.InLayer(layer, nil))

		s.matchPass(store, clusters, sorted, layer, false)

		for _, ch := range clusters {
			c, ok := store.Cluster(ch)
			if !ok {
				continue
			}
			s.updateClusterProperties(store, c)
		}

		s.matchPass(store, clusters, sorted, layer, true)

		if s.settings.SeedStrategy == config.SeedNone {
			seeded, err := s.seedFromUnmatchedHits(store, sorted)
			if err != nil {
				return engine.StatusNotApplicable, err
			}
			clusters = append(clusters, seeded...)
		}
	}

	live := make([]objstore.Handle[objstore.Cluster], 0, len(clusters))
	for _, ch := range clusters {
		c, ok := store.Cluster(ch)
		if !ok {
			continue
		}
		if c.NHits() == 0 {
			if err := store.DeleteCluster(ch, ""); err != nil {
				return engine.StatusNotApplicable, err
			}
			continue
		}
		live = append(live, ch)
	}

	logger.Info("cone clustering complete", zap.Int("layers", len(layers)), zap.Int("clusters", len(live)))
	return engine.StatusSuccess, nil
}

func (s *Stage) seed(store *objstore.Store) ([]objstore.Handle[objstore.Cluster], error) {
	if s.settings.SeedStrategy == config.SeedNone {
		return nil, nil
	}
	trackHandles, _, _ := store.TrackLists.Current()
	var clusters []objstore.Handle[objstore.Cluster]
	for _, th := range trackHandles {
		t, ok := store.Track(th)
		if !ok || !t.ReachesCalorimeter || !t.CanFormPFO {
			continue
		}
		if s.settings.SeedStrategy == config.SeedTracksByCosTheta {
			mag := math.Sqrt(t.AtECal.Momentum.MagSq())
			if mag <= 0 {
				continue
			}
			if math.Abs(t.AtECal.Momentum.Z/mag) < s.settings.SeedCosThetaCut {
				continue
			}
		}
		ch, err := store.CreateClusterFromTrack(th)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, ch)
	}
	return clusters, nil
}

// seedFromUnmatchedHits creates a new unseeded cluster from each hit
// that no existing cluster claimed this layer, used by the unseeded
// (inward, ECAL-photon-finding) variant in place of track seeding: the
// first hit of a new shower becomes its own cluster's seed.
func (s *Stage) seedFromUnmatchedHits(store *objstore.Store, sorted []objstore.Handle[objstore.CaloHit]) ([]objstore.Handle[objstore.Cluster], error) {
	var created []objstore.Handle[objstore.Cluster]
	for _, hh := range sorted {
		if _, owned := store.HitOwner(hh); owned {
			continue
		}
		ch, err := store.CreateClusterFromHit(hh)
		if err != nil {
			return nil, err
		}
		hit, _ := store.Hit(hh)
		c, _ := store.Cluster(ch)
		ipDir := hit.Position
		mag := math.Sqrt(ipDir.MagSq())
		if mag > 0 {
			c.InitialDirection = ipDir.Scale(1 / mag)
		}
		created = append(created, ch)
	}
	return created, nil
}

// matchPass is findHitsInPreviousLayers (sameLayerOnly=false) or
// findHitsInSameLayer (sameLayerOnly=true), spec §4.D.2.b/.d.
func (s *Stage) matchPass(store *objstore.Store, clusters []objstore.Handle[objstore.Cluster], sorted []objstore.Handle[objstore.CaloHit], layer uint32, sameLayerOnly bool) {
	type assignment struct {
		hit     objstore.Handle[objstore.CaloHit]
		cluster objstore.Handle[objstore.Cluster]
	}
	var batched []assignment

	for _, hh := range sorted {
		if _, owned := store.HitOwner(hh); owned {
			continue
		}
		hit, ok := store.Hit(hh)
		if !ok {
			continue
		}
		var bestCluster objstore.Handle[objstore.Cluster]
		bestDist := math.Inf(1)
		found := false
		for _, ch := range clusters {
			c, ok := store.Cluster(ch)
			if !ok {
				continue
			}
			d, ok := s.settings.genericDistance(store, c, hit, layer, sameLayerOnly)
			if ok && d < bestDist {
				bestDist = d
				bestCluster = ch
				found = true
			}
		}
		if !found || bestDist >= s.settings.GenericDistanceCut {
			continue
		}
		if s.settings.FormationStrategy == config.FormationBatched {
			batched = append(batched, assignment{hit: hh, cluster: bestCluster})
			continue
		}
		_ = store.AddHitToCluster(bestCluster, hh)
	}

	for _, a := range batched {
		_ = store.AddHitToCluster(a.cluster, a.hit)
	}
}

// updateClusterProperties is spec §4.D.2.c: fit a cluster's outermost
// layers once its span reaches NLayersSpannedForApproxFit (the same fit
// is used whether or not it also reaches NLayersSpannedForFit), and gate acceptance
// of the resulting "current direction" on a tiered dot-product/chi2 cut.
func (s *Stage) updateClusterProperties(store *objstore.Store, c *objstore.Cluster) {
	fit.UpdateDerivedState(store, c)
	if c.NLayersSpanned() < int(s.settings.NLayersSpannedForFit) {
		if c.NLayersSpanned() < int(s.settings.NLayersSpannedForApproxFit) {
			return
		}
	}

	n := int(s.settings.NLayersToFit)
	if c.MipFraction() < 0.5 {
		n *= 2
	}
	result := fit.FitEnd(store, c, n)
	c.SetFitToAllHits(result)
	if !result.Success {
		return
	}

	dirMag := math.Sqrt(c.InitialDirection.MagSq())
	resMag := math.Sqrt(result.Direction.MagSq())
	dot := 0.0
	if dirMag > 0 && resMag > 0 {
		dot = math.Abs(c.InitialDirection.Scale(1 / dirMag).Dot(result.Direction.Scale(1 / resMag)))
	}
	accepted := (dot > s.settings.FitSuccessDotCut1 && result.Chi2 < s.settings.FitSuccessChi2Cut1) ||
		(dot > s.settings.FitSuccessDotCut2 && result.Chi2 < s.settings.FitSuccessChi2Cut2)
	if accepted {
		c.InitialDirection = result.Direction
	}

	isMip := c.IsTrackSeeded && result.Chi2 < s.settings.MipTrackChi2Cut
	c.SetFlags(c.IsFixedPhoton(), c.IsPhoton(), isMip)
}

func (s *Stage) sortLayerHits(store *objstore.Store, hits []objstore.Handle[objstore.CaloHit]) []objstore.Handle[objstore.CaloHit] {
	out := make([]objstore.Handle[objstore.CaloHit], len(hits))
	copy(out, hits)
	sort.SliceStable(out, func(i, j int) bool {
		hi, _ := store.Hit(out[i])
		hj, _ := store.Hit(out[j])
		if hi == nil || hj == nil {
			return out[i].Index() < out[j].Index()
		}
		var vi, vj float64
		if s.settings.HitSorting == config.SortByDensityWeightDesc {
			vi, vj = hi.DensityWeight, hj.DensityWeight
		} else {
			vi, vj = hi.EnergyInput, hj.EnergyInput
		}
		if vi != vj {
			return vi > vj
		}
		return out[i].Index() < out[j].Index()
	})
	return out
}

func reverseLayers(layers []uint32) {
	for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
		layers[i], layers[j] = layers[j], layers[i]
	}
}
