// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trackassoc implements track-cluster association (spec
// §4.F): closest-distance projection-to-hits matching, with tie-breaks
// that prefer higher-energy clusters above a low-energy floor.
package trackassoc

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
)

// Settings is the track-cluster-association stage's cut table.
type Settings struct {
	MaxSearchLayer         uint32
	ParallelDistanceCut    float64
	MaxTrackClusterDistance float64
	LowEnergyCut           float64
}

// DefaultSettings returns the representative cut table spec.md §4.F names.
func DefaultSettings() Settings {
	return Settings{
		MaxSearchLayer:          9,
		ParallelDistanceCut:     50,
		MaxTrackClusterDistance: 100,
		LowEnergyCut:            0.5,
	}
}

func (s *Settings) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetFloat64("TrackClusterAssociation.MaxTrackClusterDistance"); err != nil {
		return err
	} else if ok {
		s.MaxTrackClusterDistance = v
	}
	if v, ok, err := cfg.GetFloat64("TrackClusterAssociation.ParallelDistanceCut"); err != nil {
		return err
	} else if ok {
		s.ParallelDistanceCut = v
	}
	if v, ok, err := cfg.GetFloat64("TrackClusterAssociation.LowEnergyCut"); err != nil {
		return err
	} else if ok {
		s.LowEnergyCut = v
	}
	return nil
}

// Stage is the track-cluster-association algorithm.
type Stage struct {
	settings    Settings
	initialized bool
}

func NewStage() *Stage { return &Stage{settings: DefaultSettings()} }

func (s *Stage) ReadSettings(cfg config.ConfigHandle) error { return s.settings.ReadSettings(cfg) }

func (s *Stage) Initialize() error {
	if s.settings.MaxTrackClusterDistance <= 0 {
		return errs.New(errs.InvalidParameter, "trackassoc: MaxTrackClusterDistance must be positive")
	}
	s.initialized = true
	return nil
}

// GetTrackClusterDistance is spec §4.F's getTrackClusterDistance: the
// minimum 3-D separation between the track's projected line and any of
// cluster's primary hits up to maxSearchLayer, rejecting hits whose
// along-track projection exceeds ParallelDistanceCut, or +Inf if no hit
// qualifies.
func (s *Settings) GetTrackClusterDistance(store *objstore.Store, track *objstore.Track, cluster *objstore.Cluster) float64 {
	mag := math.Sqrt(track.AtECal.Momentum.MagSq())
	if mag <= 0 {
		return math.Inf(1)
	}
	dir := track.AtECal.Momentum.Scale(1 / mag)

	min := math.Inf(1)
	for layer := uint32(0); layer <= s.MaxSearchLayer; layer++ {
		for _, hh := range cluster.Primary.InLayer(layer, nil) {
			hit, ok := store.Hit(hh)
			if !ok {
				continue
			}
			disp := hit.Position.Sub(track.AtECal.Position)
			along := disp.Dot(dir)
			if math.Abs(along) > s.ParallelDistanceCut {
				continue
			}
			perp := disp.Sub(dir.Scale(along))
			d := math.Sqrt(perp.MagSq())
			if d < min {
				min = d
			}
		}
	}
	return min
}

func (s *Stage) Run(rc *engine.RunContext) (engine.Status, error) {
	if !s.initialized {
		return engine.StatusNotApplicable, errs.New(errs.NotInitialized, "trackassoc: Initialize not called")
	}
	store := rc.Store
	logger := log.ForStage(rc.Log, "TrackClusterAssociation")

	trackHandles, _, ok := store.TrackLists.Current()
	if !ok {
		return engine.StatusNotApplicable, nil
	}
	clusterHandles := store.AllClusters()

	associations := 0
	for _, th := range trackHandles {
		t, ok := store.Track(th)
		if !ok || !t.ReachesCalorimeter || !t.CanFormPFO {
			continue
		}
		best, bestEnergy, found := s.bestCluster(store, t, clusterHandles)
		if !found {
			continue
		}
		if err := store.AssociateTrackCluster(th, best); err != nil {
			return engine.StatusNotApplicable, err
		}
		associations++
		_ = bestEnergy
	}

	logger.Info("track-cluster association complete", zap.Int("associations", associations))
	return engine.StatusSuccess, nil
}

// bestCluster picks the closest cluster under MaxTrackClusterDistance,
// breaking ties (equal distance) in favor of the higher-energy cluster
// once that cluster's energy clears LowEnergyCut (spec §4.F).
func (s *Stage) bestCluster(store *objstore.Store, t *objstore.Track, clusterHandles []objstore.Handle[objstore.Cluster]) (objstore.Handle[objstore.Cluster], float64, bool) {
	ordered := make([]objstore.Handle[objstore.Cluster], len(clusterHandles))
	copy(ordered, clusterHandles)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index() < ordered[j].Index() })

	var best objstore.Handle[objstore.Cluster]
	bestDist := math.Inf(1)
	bestEnergy := -1.0
	found := false

	for _, ch := range ordered {
		c, ok := store.Cluster(ch)
		if !ok {
			continue
		}
		d := s.settings.GetTrackClusterDistance(store, t, c)
		if d >= s.settings.MaxTrackClusterDistance {
			continue
		}
		energy := c.EnergyCorrected()
		better := false
		switch {
		case !found:
			better = true
		case d < bestDist:
			better = true
		case d == bestDist && energy > s.settings.LowEnergyCut && energy > bestEnergy:
			better = true
		}
		if better {
			best, bestDist, bestEnergy, found = ch, d, energy, true
		}
	}
	return best, bestEnergy, found
}
