// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

// FitResult is the outcome of a least-squares line fit through a run of
// energy-weighted layer centroids (spec §4.C fitLayers/fitStart/fitEnd).
// Package fit computes these; objstore only stores the result on the
// owning Cluster's derived-state cache so later passes can read it
// without recomputing.
type FitResult struct {
	Success        bool
	Direction      Vec3
	Intercept      Vec3
	RMS            float64
	Chi2           float64
	RadialDirCos   float64
	NLayersFit     int
}

// ShowerProfile captures the profile-start/discrepancy pair the fragment
// removal photon-like test (spec §4.H) reads.
type ShowerProfile struct {
	Start        float64
	Discrepancy  float64
}
