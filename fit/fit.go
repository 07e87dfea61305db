// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fit implements spec §4.C's cluster-fit helpers
// (fitLayers/fitStart/fitEnd) and the lazy cluster derived-state
// recompute that cone clustering's "update cluster properties" pass
// (§4.D.2.c) invokes. Fits go through gonum.org/v1/gonum/stat's
// weighted linear regression rather than a hand-rolled accumulator,
// matching the numeric style the retrieval pack's
// banshee-data-velocity.report repo uses for this class of small dense
// fit (there: per-minute speed percentiles via gonum/stat; here: a
// per-layer centroid regression along a cluster's depth axis).
package fit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/luxfi/pflow/objstore"
)

// LayerCentroid is one pseudo-layer's energy-weighted hit centroid.
type LayerCentroid struct {
	Layer  uint32
	Pos    objstore.Vec3
	Weight float64
}

// LayerCentroids computes the energy-weighted centroid of every
// occupied layer in cluster's primary hit list.
func LayerCentroids(store *objstore.Store, cluster *objstore.Cluster) []LayerCentroid {
	var out []LayerCentroid
	for _, layer := range cluster.Primary.Layers() {
		var sumPos objstore.Vec3
		var sumW float64
		for _, h := range cluster.Primary.InLayer(layer, nil) {
			hit, ok := store.Hit(h)
			if !ok {
				continue
			}
			w := hit.EnergyInput
			if w <= 0 {
				w = 1e-9
			}
			sumPos = sumPos.Add(hit.Position.Scale(w))
			sumW += w
		}
		if sumW <= 0 {
			continue
		}
		out = append(out, LayerCentroid{Layer: layer, Pos: sumPos.Scale(1 / sumW), Weight: sumW})
	}
	return out
}

// FitLayers fits a line through the energy-weighted layer centroids
// between layers [lFrom, lTo] inclusive (spec §4.C). Fails (Success
// false) if fewer than 2 occupied layers fall in range.
func FitLayers(store *objstore.Store, cluster *objstore.Cluster, lFrom, lTo uint32) objstore.FitResult {
	all := LayerCentroids(store, cluster)
	var in []LayerCentroid
	for _, c := range all {
		if c.Layer >= lFrom && c.Layer <= lTo {
			in = append(in, c)
		}
	}
	return fitCentroids(in)
}

// FitStart fits the first n occupied layers of cluster.
func FitStart(store *objstore.Store, cluster *objstore.Cluster, n int) objstore.FitResult {
	all := LayerCentroids(store, cluster)
	sort.Slice(all, func(i, j int) bool { return all[i].Layer < all[j].Layer })
	if n > len(all) {
		n = len(all)
	}
	return fitCentroids(all[:n])
}

// FitEnd fits the last n occupied layers of cluster.
func FitEnd(store *objstore.Store, cluster *objstore.Cluster, n int) objstore.FitResult {
	all := LayerCentroids(store, cluster)
	sort.Slice(all, func(i, j int) bool { return all[i].Layer < all[j].Layer })
	if n > len(all) {
		n = len(all)
	}
	return fitCentroids(all[len(all)-n:])
}

func fitCentroids(samples []LayerCentroid) objstore.FitResult {
	if len(samples) < 2 {
		return objstore.FitResult{Success: false}
	}
	n := len(samples)
	ls := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	ws := make([]float64, n)
	for i, s := range samples {
		ls[i] = float64(s.Layer)
		xs[i] = s.Pos.X
		ys[i] = s.Pos.Y
		zs[i] = s.Pos.Z
		ws[i] = s.Weight
	}

	ax, bx := stat.LinearRegression(ls, xs, ws, false)
	ay, by := stat.LinearRegression(ls, ys, ws, false)
	az, bz := stat.LinearRegression(ls, zs, ws, false)

	dir := objstore.Vec3{X: bx, Y: by, Z: bz}
	dirMag := math.Sqrt(dir.MagSq())
	if dirMag > 0 {
		dir = dir.Scale(1 / dirMag)
	}
	intercept := objstore.Vec3{X: ax, Y: ay, Z: az}

	var sumSq, sumW float64
	for i, s := range samples {
		predicted := objstore.Vec3{
			X: ax + bx*ls[i],
			Y: ay + by*ls[i],
			Z: az + bz*ls[i],
		}
		diff := s.Pos.Sub(predicted)
		sumSq += s.Weight * diff.MagSq()
		sumW += s.Weight
	}
	rms := 0.0
	if sumW > 0 {
		rms = math.Sqrt(sumSq / sumW)
	}
	chi2 := sumSq
	if dof := float64(n - 2); dof > 0 {
		chi2 /= dof
	}

	radialCos := 0.0
	interceptMag := math.Sqrt(intercept.MagSq())
	if interceptMag > 0 && dirMag > 0 {
		radialCos = dir.Dot(intercept.Scale(1 / interceptMag))
	}

	return objstore.FitResult{
		Success:      true,
		Direction:    dir,
		Intercept:    intercept,
		RMS:          rms,
		Chi2:         chi2,
		RadialDirCos: radialCos,
		NLayersFit:   n,
	}
}
