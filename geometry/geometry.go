// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package geometry is the read-only detector-parameter service and its
// two pluggable strategy objects (pseudo-layer and B-field calculators),
// spec §4.A. The concrete detector model, and the production pseudo-
// layer/B-field algorithms they stand in for, are external collaborators
// (spec §1 Non-goals); this package owns only the interfaces those
// strategies must satisfy plus one reference implementation of each,
// enough to drive the reconstruction stages end to end.
package geometry

import (
	"math"
	"sort"

	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/objstore"
)

// LayerBoundary is one calorimeter layer's outer edge along its
// sub-detector's depth axis (radius for barrel, |z| for endcap), plus
// the radiation/interaction depth accumulated by that edge.
type LayerBoundary struct {
	OuterEdge        float64
	RadiationDepth   float64
	InteractionDepth float64
}

// SubDetectorGeometry is one sub-detector's read-only parameter block
// (spec §4.A: "inner R, outer R, inner/outer Z, N-fold symmetry, phi0,
// layer list with radiation/interaction depths"). Layers must be sorted
// by ascending OuterEdge.
type SubDetectorGeometry struct {
	InnerR, OuterR float64
	InnerZ, OuterZ float64
	SymmetryOrder  int
	Phi0           float64
	Layers         []LayerBoundary
}

// GetMaximumRadius returns the largest perpendicular distance from the
// z-axis to any of an N-fold polygon's faces at (x, y) (spec §4.A). For
// symmetryOrder <= 2 the cross-section is treated as circular.
func GetMaximumRadius(symmetryOrder int, phi0, x, y float64) float64 {
	if symmetryOrder <= 2 {
		return math.Sqrt(x*x + y*y)
	}
	maxR := math.Inf(-1)
	for i := 0; i < symmetryOrder; i++ {
		phi := phi0 + 2*math.Pi*float64(i)/float64(symmetryOrder)
		if r := x*math.Cos(phi) + y*math.Sin(phi); r > maxR {
			maxR = r
		}
	}
	return maxR
}

// DetectorGap is a dead-region shape query (spec §3.1's "Detector gap").
type DetectorGap interface {
	Contains(pos objstore.Vec3) bool
}

// BoxGap is an axis-aligned rectangular dead region.
type BoxGap struct {
	Min, Max objstore.Vec3
}

func (g BoxGap) Contains(pos objstore.Vec3) bool {
	return pos.X >= g.Min.X && pos.X <= g.Max.X &&
		pos.Y >= g.Min.Y && pos.Y <= g.Max.Y &&
		pos.Z >= g.Min.Z && pos.Z <= g.Max.Z
}

// AnnulusGap is a concentric-ring dead region in the transverse plane,
// bounded along z.
type AnnulusGap struct {
	InnerR, OuterR float64
	MinZ, MaxZ     float64
}

func (g AnnulusGap) Contains(pos objstore.Vec3) bool {
	if pos.Z < g.MinZ || pos.Z > g.MaxZ {
		return false
	}
	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	return r >= g.InnerR && r <= g.OuterR
}

// IsInDetectorGapRegion reports whether pos falls inside any of gaps.
func IsInDetectorGapRegion(pos objstore.Vec3, gaps []DetectorGap) bool {
	for _, g := range gaps {
		if g.Contains(pos) {
			return true
		}
	}
	return false
}

// PseudoLayerCalculator assigns a pseudo-layer and region to a position.
// The production algorithm is an external collaborator (spec §1); this
// interface is the contract every stage reads a hit's pseudo-layer
// through, set once at engine-instance construction (spec §9: replace
// the source's PandoraSettings/GeometryHelper singletons with an
// explicit context object instead of global state).
type PseudoLayerCalculator interface {
	PseudoLayer(pos objstore.Vec3) (layer uint32, region objstore.Region, err error)
}

// BarrelEndcapPseudoLayerCalculator is a reference PseudoLayerCalculator
// built directly from two SubDetectorGeometry blocks: barrel layers are
// indexed by radius, endcap layers by |z|.
type BarrelEndcapPseudoLayerCalculator struct {
	Barrel SubDetectorGeometry
	Endcap SubDetectorGeometry
}

func NewBarrelEndcapPseudoLayerCalculator(barrel, endcap SubDetectorGeometry) *BarrelEndcapPseudoLayerCalculator {
	return &BarrelEndcapPseudoLayerCalculator{Barrel: barrel, Endcap: endcap}
}

func (c *BarrelEndcapPseudoLayerCalculator) PseudoLayer(pos objstore.Vec3) (uint32, objstore.Region, error) {
	if pos.X == 0 && pos.Y == 0 && pos.Z == 0 {
		return 0, objstore.RegionBarrel, errs.New(errs.InvalidParameter, "pseudoLayer: origin has no defined depth")
	}
	region, geo, depth := c.classify(pos)
	if len(geo.Layers) == 0 {
		return 0, region, errs.New(errs.NotInitialized, "pseudoLayer: sub-detector has no configured layers")
	}
	idx := sort.Search(len(geo.Layers), func(i int) bool { return geo.Layers[i].OuterEdge >= depth })
	if idx >= len(geo.Layers) {
		idx = len(geo.Layers) - 1
	}
	return uint32(idx), region, nil
}

func (c *BarrelEndcapPseudoLayerCalculator) classify(pos objstore.Vec3) (objstore.Region, SubDetectorGeometry, float64) {
	r := GetMaximumRadius(c.Barrel.SymmetryOrder, c.Barrel.Phi0, pos.X, pos.Y)
	if math.Abs(pos.Z) <= c.Barrel.OuterZ && r <= c.Barrel.OuterR {
		return objstore.RegionBarrel, c.Barrel, r
	}
	return objstore.RegionEndcap, c.Endcap, math.Abs(pos.Z)
}

// BFieldCalculator returns the axial magnetic field, in Tesla, at a
// position. Like PseudoLayerCalculator, the production algorithm is an
// external collaborator; this is the contract track-state propagation
// reads the field through.
type BFieldCalculator interface {
	BField(pos objstore.Vec3) (float64, error)
}

// ConstantBField is a reference BFieldCalculator for detectors modeled
// with a uniform solenoidal field over the tracking volume.
type ConstantBField struct {
	Tesla float64
}

func (b ConstantBField) BField(objstore.Vec3) (float64, error) {
	if b.Tesla == 0 {
		return 0, errs.New(errs.InvalidParameter, "bField: zero field configured")
	}
	return b.Tesla, nil
}
