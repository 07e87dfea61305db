// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fit

import (
	"math"

	"github.com/luxfi/pflow/objstore"
)

// TrackClusterCompatibility is spec §4.C's energy-momentum compatibility
// statistic: (clusterEnergy - trackEnergy) / sigma(trackEnergy), with
// sigma parameterised by a configured hadronic energy resolution
// (sigma = resolution * sqrt(trackEnergy)). A negative result means the
// cluster energy is too low relative to its tracks.
func TrackClusterCompatibility(clusterEnergy, trackEnergy, resolution float64) float64 {
	if trackEnergy <= 0 {
		return 0
	}
	sigma := resolution * math.Sqrt(trackEnergy)
	if sigma <= 0 {
		return 0
	}
	return (clusterEnergy - trackEnergy) / sigma
}

// ReclusterCandidateResult is one candidate reclustering's scorecard,
// spec §4.C/§4.G's extractReclusterResults output.
type ReclusterCandidateResult struct {
	ChiSqPerDof                     float64
	MinTrackAssociatedClusterEnergy float64
	NExcessTrackAssociations        int
	NUnassociatedTracks             int
}

// ExtractReclusterResults scores one candidate cluster list against the
// track list it was reclustered from, for the reclustering driver's
// chi-squared-based candidate selection (spec §4.G step 3).
func ExtractReclusterResults(store *objstore.Store, clusters []objstore.Handle[objstore.Cluster], tracks []objstore.Handle[objstore.Track], resolution float64) ReclusterCandidateResult {
	var result ReclusterCandidateResult
	result.MinTrackAssociatedClusterEnergy = math.Inf(1)

	var sumChiSq float64
	var dof int

	for _, ch := range clusters {
		c, ok := store.Cluster(ch)
		if !ok || c.Tracks.Len() == 0 {
			continue
		}

		var trackEnergy float64
		for _, th := range c.Tracks.Unordered() {
			if t, ok := store.Track(th); ok {
				trackEnergy += t.EnergyAtDCA
			}
		}

		chi := TrackClusterCompatibility(c.EnergyCorrected(), trackEnergy, resolution)
		sumChiSq += chi * chi
		dof++

		if c.EnergyCorrected() < result.MinTrackAssociatedClusterEnergy {
			result.MinTrackAssociatedClusterEnergy = c.EnergyCorrected()
		}
		if excess := c.Tracks.Len() - 1; excess > 0 {
			result.NExcessTrackAssociations += excess
		}
	}

	if dof > 0 {
		result.ChiSqPerDof = sumChiSq / float64(dof)
	}
	if math.IsInf(result.MinTrackAssociatedClusterEnergy, 1) {
		result.MinTrackAssociatedClusterEnergy = 0
	}

	for _, th := range tracks {
		t, ok := store.Track(th)
		if !ok || !t.HasCluster() {
			result.NUnassociatedTracks++
		}
	}

	return result
}
