// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fit

import (
	"math"

	"github.com/luxfi/pflow/objstore"
)

// FractionOfHitsInCone returns the fraction of daughter's primary hits
// whose displacement from apex has a dot product with direction
// exceeding cosHalfAngle times the displacement's magnitude (spec
// §4.C/§4.H's cone-based contact evidence).
func FractionOfHitsInCone(store *objstore.Store, daughter *objstore.Cluster, apex, direction objstore.Vec3, cosHalfAngle float64) float64 {
	dirMag := math.Sqrt(direction.MagSq())
	if dirMag <= 0 {
		return 0
	}
	unitDir := direction.Scale(1 / dirMag)

	hits := daughter.Primary.All(nil)
	if len(hits) == 0 {
		return 0
	}
	inCone := 0
	for _, h := range hits {
		hit, ok := store.Hit(h)
		if !ok {
			continue
		}
		disp := hit.Position.Sub(apex)
		mag := math.Sqrt(disp.MagSq())
		if mag <= 0 {
			continue
		}
		if unitDir.Dot(disp) > cosHalfAngle*mag {
			inCone++
		}
	}
	return float64(inCone) / float64(len(hits))
}

// ContactDetails is the (nContactLayers, contactFraction) pair spec
// §4.C's clusterContactDetails returns.
type ContactDetails struct {
	NContactLayers int
	ContactFraction float64
}

// ClusterContactDetails reports, for the layers daughter and parent both
// occupy, how many are "in contact" (some daughter hit in that layer
// within distanceThreshold * cellTransverseSize of some parent hit in
// the same layer), and the fraction of overlapping layers that are.
func ClusterContactDetails(store *objstore.Store, daughter, parent *objstore.Cluster, distanceThreshold float64) ContactDetails {
	dLayers := daughter.Primary.Layers()
	if len(dLayers) == 0 {
		return ContactDetails{}
	}
	overlap := 0
	contact := 0
	for _, layer := range dLayers {
		parentHits := parent.Primary.InLayer(layer, nil)
		if len(parentHits) == 0 {
			continue
		}
		overlap++
		if layersInContact(store, daughter.Primary.InLayer(layer, nil), parentHits, distanceThreshold) {
			contact++
		}
	}
	if overlap == 0 {
		return ContactDetails{}
	}
	return ContactDetails{
		NContactLayers:  contact,
		ContactFraction: float64(contact) / float64(overlap),
	}
}

func layersInContact(store *objstore.Store, daughterHits, parentHits []objstore.Handle[objstore.CaloHit], distanceThreshold float64) bool {
	for _, dh := range daughterHits {
		d, ok := store.Hit(dh)
		if !ok {
			continue
		}
		threshold := distanceThreshold * d.CellSizeTransverse
		for _, ph := range parentHits {
			p, ok := store.Hit(ph)
			if !ok {
				continue
			}
			if math.Sqrt(d.Position.Sub(p.Position).MagSq()) < threshold {
				return true
			}
		}
	}
	return false
}
