// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import "github.com/luxfi/pflow/set"

// MCParticle is one truth-particle node in the event-global DAG (spec
// §3.1). Every reader must treat MC data as optional and observer-only
// per spec §9: no stage's correctness may depend on MCParticle being
// present.
type MCParticle struct {
	Parents   set.Set[Handle[MCParticle]]
	Daughters set.Set[Handle[MCParticle]]

	Energy        float64
	Momentum      Vec3
	InnerRadius   float64
	OuterRadius   float64
	ParticleID    int32
}
