// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fit

import "github.com/luxfi/pflow/objstore"

// UpdateDerivedState recomputes a cluster's cached derived state from its
// current hit membership (spec §4.D.2.c's "update cluster properties"
// pass, generalized so every stage that mutates a cluster can call it
// rather than duplicating the layer-span/energy bookkeeping inline).
func UpdateDerivedState(store *objstore.Store, cluster *objstore.Cluster) {
	inner, hasInner := cluster.Primary.InnerLayer()
	outer, hasOuter := cluster.Primary.OuterLayer()
	if !hasInner || !hasOuter {
		cluster.SetLayerSpan(0, 0, nil)
		cluster.SetEnergies(0, 0, 0)
		cluster.SetMipFraction(0)
		return
	}

	centroids := make(map[uint32]objstore.Vec3)
	for _, lc := range LayerCentroids(store, cluster) {
		centroids[lc.Layer] = lc.Pos
	}
	cluster.SetLayerSpan(inner, outer, centroids)

	var em, had, mipHits, nHits float64
	for _, h := range cluster.Primary.All(nil) {
		hit, ok := store.Hit(h)
		if !ok {
			continue
		}
		em += hit.EnergyEM
		had += hit.EnergyHad
		nHits++
		if hit.IsPossibleMip {
			mipHits++
		}
	}
	cluster.SetEnergies(em, had, em+had)
	if nHits > 0 {
		cluster.SetMipFraction(mipHits / nHits)
	} else {
		cluster.SetMipFraction(0)
	}
}
