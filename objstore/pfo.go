// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import "github.com/luxfi/pflow/set"

// ParticleFlowObject is the engine's final output unit (spec §3.1).
type ParticleFlowObject struct {
	ParticleID int32
	Charge     int
	Mass       float64
	Energy     float64
	Momentum   Vec3

	Clusters set.Set[Handle[Cluster]]
	Tracks   set.Set[Handle[Track]]
}

// IsEmpty reports whether the PFO has neither clusters nor tracks, the
// illegal state spec §3.3 says the caller must delete.
func (p *ParticleFlowObject) IsEmpty() bool {
	return p.Clusters.Len() == 0 && p.Tracks.Len() == 0
}
