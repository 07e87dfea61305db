// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import "github.com/luxfi/pflow/set"

// Cluster is a mutable aggregate of calo hits, an isolated-hit list, and
// zero or more associated tracks (spec §3.1). Derived state is cached
// and invalidated (not eagerly recomputed) on every mutation. The
// accessors return the cached values as last computed even while the
// cache is stale; Defunct reports staleness and fit.UpdateDerivedState
// recomputes.
type Cluster struct {
	Primary  *OrderedCaloHitList
	Isolated *OrderedCaloHitList
	Tracks   set.Set[Handle[Track]]

	IsTrackSeeded    bool
	InitialDirection Vec3

	derived derivedState
}

// derivedState is recomputed by fit.UpdateDerivedState; valid is
// false whenever a mutation has happened since the last recompute.
type derivedState struct {
	valid bool

	innerLayer, outerLayer uint32
	centroidPerLayer       map[uint32]Vec3

	energyEM, energyHad, energyCorrected float64
	mipFraction                          float64

	showerStartLayer, showerMaxLayer uint32

	fitToAllHits  FitResult
	showerProfile ShowerProfile

	isFixedPhoton bool
	isPhoton      bool
	isMipTrack    bool
}

// Defunct reports whether the cluster's cached derived state needs
// recomputation. Callers that only need lightweight facts (layer span,
// hit count) should prefer the cheap accessors below over forcing a
// full recompute.
func (c *Cluster) Defunct() bool { return !c.derived.valid }

// Invalidate marks the derived-state cache stale. Called by every
// Store mutation (addHit, removeHit, mergeAndDelete, ...).
func (c *Cluster) Invalidate() { c.derived.valid = false }

// NLayersSpanned returns outerLayer-innerLayer+1, or 0 if empty.
func (c *Cluster) NLayersSpanned() int {
	in, ok := c.Primary.InnerLayer()
	if !ok {
		return 0
	}
	out, _ := c.Primary.OuterLayer()
	return int(out-in) + 1
}

// NHits returns the number of primary (non-isolated) hits.
func (c *Cluster) NHits() int { return c.Primary.Len() }

// SetFitToAllHits stores a freshly computed fit result. Cone clustering
// stores here its package fit FitEnd result over the outermost layers.
func (c *Cluster) SetFitToAllHits(r FitResult) { c.derived.fitToAllHits = r }

// FitToAllHits returns the cached fit-to-all-hits result. Callers that
// require it fresh must first check Defunct and recompute if stale.
func (c *Cluster) FitToAllHits() FitResult { return c.derived.fitToAllHits }

// SetEnergies stores the cached EM/hadronic/corrected energy sums.
func (c *Cluster) SetEnergies(em, had, corrected float64) {
	c.derived.energyEM = em
	c.derived.energyHad = had
	c.derived.energyCorrected = corrected
}

func (c *Cluster) EnergyEM() float64        { return c.derived.energyEM }
func (c *Cluster) EnergyHadronic() float64  { return c.derived.energyHad }
func (c *Cluster) EnergyCorrected() float64 { return c.derived.energyCorrected }

// SetMipFraction stores the cached MIP fraction.
func (c *Cluster) SetMipFraction(f float64) { c.derived.mipFraction = f }
func (c *Cluster) MipFraction() float64     { return c.derived.mipFraction }

// SetShowerLayers stores the cached shower-start/shower-max layers.
func (c *Cluster) SetShowerLayers(start, max uint32) {
	c.derived.showerStartLayer = start
	c.derived.showerMaxLayer = max
}
func (c *Cluster) ShowerStartLayer() uint32 { return c.derived.showerStartLayer }
func (c *Cluster) ShowerMaxLayer() uint32   { return c.derived.showerMaxLayer }

// SetShowerProfile stores the cached shower-profile start/discrepancy.
func (c *Cluster) SetShowerProfile(p ShowerProfile) { c.derived.showerProfile = p }
func (c *Cluster) ShowerProfile() ShowerProfile     { return c.derived.showerProfile }

// SetFlags stores the cached isFixedPhoton/isPhoton/isMipTrack flags.
func (c *Cluster) SetFlags(fixedPhoton, photon, mipTrack bool) {
	c.derived.isFixedPhoton = fixedPhoton
	c.derived.isPhoton = photon
	c.derived.isMipTrack = mipTrack
}
func (c *Cluster) IsFixedPhoton() bool { return c.derived.isFixedPhoton }
func (c *Cluster) IsPhoton() bool      { return c.derived.isPhoton }
func (c *Cluster) IsMipTrack() bool    { return c.derived.isMipTrack }

// SetLayerSpan stores the cached inner/outer layer and per-layer
// centroid map, computed from Primary's current contents.
func (c *Cluster) SetLayerSpan(inner, outer uint32, centroids map[uint32]Vec3) {
	c.derived.innerLayer = inner
	c.derived.outerLayer = outer
	c.derived.centroidPerLayer = centroids
	c.derived.valid = true
}

func (c *Cluster) InnerLayer() uint32 { return c.derived.innerLayer }
func (c *Cluster) OuterLayer() uint32 { return c.derived.outerLayer }

// CentroidAt returns the cached energy-weighted centroid of layer, and
// whether that layer is occupied.
func (c *Cluster) CentroidAt(layer uint32) (Vec3, bool) {
	v, ok := c.derived.centroidPerLayer[layer]
	return v, ok
}
