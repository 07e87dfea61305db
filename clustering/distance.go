// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clustering

import (
	"math"

	"github.com/luxfi/pflow/objstore"
)

// candidate is one of the three generic-distance components (spec
// §4.D's "Generic distance to a hit"); ok is false when that component
// does not apply to this (cluster, hit) pair.
type candidate struct {
	distance float64
	ok       bool
}

func best(cands ...candidate) (float64, bool) {
	min := math.Inf(1)
	found := false
	for _, c := range cands {
		if c.ok && c.distance < min {
			min = c.distance
			found = true
		}
	}
	return min, found
}

// genericDistance computes spec §4.D's composite cluster-to-hit
// distance: the minimum of the track-seed, cone-approach, and
// same-layer candidate distances, or (+Inf, false) if none apply.
func (s *Settings) genericDistance(store *objstore.Store, c *objstore.Cluster, hit *objstore.CaloHit, layer uint32, sameLayerOnly bool) (float64, bool) {
	if !s.passesCosAngleGuard(c, hit) {
		return math.Inf(1), false
	}

	var cands []candidate
	if !sameLayerOnly {
		cands = append(cands, s.trackSeedDistance(store, c, hit, layer))
		cands = append(cands, s.coneApproachDistance(store, c, hit, s.previousLayerWindow(c, hit, layer)))
	} else {
		cands = append(cands, s.sameLayerDistance(store, c, hit, layer))
	}
	return best(cands...)
}

// previousLayerWindow returns the cluster hits the previous-layer
// matching pass compares against: the stepBack layers already visited
// in iteration order before L (spec §4.D.2.b), where stepBack is fine
// (ECAL) or coarse (HCAL). Iteration runs ascending by default and
// descending in the inward (ECAL-photon) variant, so "already visited"
// is [L-stepBack, L-1] outward but [L+1, L+stepBack] inward.
func (s *Settings) previousLayerWindow(c *objstore.Cluster, hit *objstore.CaloHit, layer uint32) []objstore.Handle[objstore.CaloHit] {
	stepBack := s.StepBackFine
	if hit.Granularity() != objstore.GranularityFine {
		stepBack = s.StepBackCoarse
	}
	if s.Inward {
		return c.Primary.InLayerRange(layer+1, layer+stepBack, nil)
	}
	if layer == 0 {
		return nil
	}
	var from uint32
	if layer > stepBack {
		from = layer - stepBack
	}
	return c.Primary.InLayerRange(from, layer-1, nil)
}

// passesCosAngleGuard applies the direction-cosine rejection: the
// (IP-to-hit)·(cluster initial direction) cosine must clear
// minHitClusterCosAngle, tightened to minHitTrackCosAngle for a
// track-seeded cluster's first layers.
func (s *Settings) passesCosAngleGuard(c *objstore.Cluster, hit *objstore.CaloHit) bool {
	dirMag := math.Sqrt(c.InitialDirection.MagSq())
	hitMag := math.Sqrt(hit.Position.MagSq())
	if dirMag <= 0 || hitMag <= 0 {
		return true
	}
	cos := c.InitialDirection.Dot(hit.Position) / (dirMag * hitMag)
	cut := s.MinHitClusterCosAngle
	if c.IsTrackSeeded && hit.PseudoLayer <= s.MaxLayersToTrackSeed {
		cut = s.MinHitTrackCosAngle
	}
	return cos >= cut
}

func (s *Settings) trackSeedDistance(store *objstore.Store, c *objstore.Cluster, hit *objstore.CaloHit, layer uint32) candidate {
	if !c.IsTrackSeeded {
		return candidate{}
	}
	near := layer <= s.MaxLayersToTrackSeed
	if !near {
		near = s.hasTrackLikeHitWithin(store, c, layer)
	}
	if !near {
		return candidate{}
	}
	for track := range c.Tracks {
		t, ok := store.Track(track)
		if !ok {
			continue
		}
		projected := t.AtECal.ProjectAtPathLength(float64(hit.PseudoLayer))
		sep := math.Sqrt(hit.Position.Sub(projected).MagSq())
		if s.TrackPathWidth <= 0 {
			continue
		}
		return candidate{distance: sep / s.TrackPathWidth, ok: true}
	}
	return candidate{}
}

func (s *Settings) hasTrackLikeHitWithin(store *objstore.Store, c *objstore.Cluster, layer uint32) bool {
	var from uint32
	if layer > s.MaxLayersToTrackLikeHit {
		from = layer - s.MaxLayersToTrackLikeHit
	}
	for _, h := range c.Primary.InLayerRange(from, layer, nil) {
		if hit, ok := store.Hit(h); ok && hit.IsPossibleMip {
			return true
		}
	}
	return false
}

func (s *Settings) coneApproachDistance(store *objstore.Store, c *objstore.Cluster, hit *objstore.CaloHit, searchHits []objstore.Handle[objstore.CaloHit]) candidate {
	dirMag := math.Sqrt(c.InitialDirection.MagSq())
	if dirMag <= 0 || len(searchHits) == 0 {
		return candidate{}
	}
	axis := c.InitialDirection.Scale(1 / dirMag)

	tanCone := s.TanConeAngleFine
	padWidth := s.PadWidthFine
	if hit.Granularity() != objstore.GranularityFine {
		tanCone = s.TanConeAngleCoarse
		padWidth = s.PadWidthCoarse
	}

	found := false
	min := math.Inf(1)
	for _, h := range searchHits {
		ch, ok := store.Hit(h)
		if !ok {
			continue
		}
		disp := hit.Position.Sub(ch.Position)
		axialProj := disp.Dot(axis)
		if axialProj < s.MinClusterDirProjection || axialProj > s.MaxClusterDirProjection {
			continue
		}
		perp := disp.Sub(axis.Scale(axialProj))
		perpMagSq := perp.MagSq()
		if perpMagSq >= s.ConeApproachMaxSeparation*s.ConeApproachMaxSeparation {
			continue
		}
		coneRadius := tanCone*axialProj + padWidth
		d := math.Sqrt(perpMagSq) / math.Max(coneRadius, 1e-9)
		if d < min {
			min = d
			found = true
		}
	}
	return candidate{distance: min, ok: found}
}

func (s *Settings) sameLayerDistance(store *objstore.Store, c *objstore.Cluster, hit *objstore.CaloHit, layer uint32) candidate {
	padWidth := s.PadWidthFine
	if hit.Granularity() != objstore.GranularityFine {
		padWidth = s.PadWidthCoarse
	}
	if padWidth <= 0 {
		return candidate{}
	}

	found := false
	min := math.Inf(1)
	for _, h := range c.Primary.InLayer(layer, nil) {
		ch, ok := store.Hit(h)
		if !ok {
			continue
		}
		sep := math.Sqrt(hit.Position.Sub(ch.Position).MagSq()) / padWidth
		if sep < min {
			min = sep
			found = true
		}
	}
	return candidate{distance: min, ok: found}
}
