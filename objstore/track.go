// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import (
	"math"

	"github.com/luxfi/pflow/set"
)

// HelixState is a track state (position + momentum direction) at a
// named reference point, used for the DCA, start-of-track, end-of-track,
// and calorimeter-face states spec §3.1 lists.
type HelixState struct {
	Position Vec3
	Momentum Vec3
}

// Track is an immutable measured trajectory plus the relational graph
// to other tracks. Per spec §3.1 the parent/daughter/sibling graph must
// stay acyclic within one event; Store.LinkTrackParentDaughter and
// Store.LinkTrackSiblings do no runtime cycle detection, since tracks
// are only ever linked once, at input-adapter time, before any stage
// runs.
type Track struct {
	EnergyAtDCA   float64
	MomentumAtDCA Vec3
	Charge        int
	Mass          float64
	ParticleIDHypothesis int32

	AtStart HelixState
	AtEnd   HelixState
	AtECal  HelixState

	ProjectsToEndcap  bool
	ReachesCalorimeter bool
	CanFormPFO         bool

	MCParticle Handle[MCParticle]

	Parents   set.Set[Handle[Track]]
	Daughters set.Set[Handle[Track]]
	Siblings  set.Set[Handle[Track]]

	// associatedCluster is the weak back-pointer to at most one
	// cluster (spec §3.1's "only one cluster association at a time").
	// It is mutated only by the track-cluster association operations
	// in ops.go, never read directly by stages.
	associatedCluster Handle[Cluster]
}

// HasCluster reports whether the track currently has a cluster association.
func (t *Track) HasCluster() bool { return !t.associatedCluster.IsZero() }

// AssociatedCluster returns the track's current cluster association, if any.
func (t *Track) AssociatedCluster() (Handle[Cluster], bool) {
	return t.associatedCluster, !t.associatedCluster.IsZero()
}

// ProjectAtPathLength linearly extrapolates the state pathLength along
// its momentum direction. Cone clustering uses this as the track input
// to its generic distance metric; the real detector
// geometry service (out of scope, §4.A) supplies the per-layer radial
// offsets in a production deployment, so this is a straight-line
// approximation parameterised by a caller-supplied path length.
func (s HelixState) ProjectAtPathLength(pathLength float64) Vec3 {
	mag := s.Momentum.MagSq()
	if mag <= 0 {
		return s.Position
	}
	dir := s.Momentum.Scale(1 / math.Sqrt(mag))
	return s.Position.Add(dir.Scale(pathLength))
}
