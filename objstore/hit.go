// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import (
	"github.com/google/uuid"

	"github.com/luxfi/pflow/set"
)

// HitType is the fixed granularity enumeration from spec §4.A.
type HitType int

const (
	HitInner HitType = iota
	HitECAL
	HitHCAL
	HitMuon
)

// Granularity classifies a HitType's cell coarseness, used throughout
// clustering (fine/coarse step-back, cone angle, pad width).
type Granularity int

const (
	GranularityFine Granularity = iota
	GranularityCoarse
	GranularityVeryCoarse
)

// Granularity maps a hit's type to its fixed granularity class.
func (t HitType) Granularity() Granularity {
	switch t {
	case HitECAL:
		return GranularityFine
	case HitHCAL:
		return GranularityCoarse
	default:
		return GranularityVeryCoarse
	}
}

// Region is the detector region a hit's pseudo-layer was computed in.
type Region int

const (
	RegionBarrel Region = iota
	RegionEndcap
)

// Vec3 is a minimal 3-vector; the engine never needs a full linear
// algebra stack for point/direction storage, only the handful of
// operations used directly below (the heavier least-squares work in
// package fit goes through gonum instead).
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}
func (v Vec3) MagSq() float64 { return v.Dot(v) }

// CaloHit is one calorimeter cell deposit. All fields besides the
// pseudo-layer are immutable once constructed; pseudo-layer is assigned
// exactly once, at creation, via the geometry pseudo-layer calculator
// (spec §3.1, §4.A) and never revisited.
type CaloHit struct {
	// OriginatingHitAddress is the opaque, address-like token the input
	// adapter stamped on this hit before handing it to the engine. It
	// is never used for ordering (ordering uses the deterministic Handle
	// index instead); it exists purely so the input side can recognize
	// its own hits in the output.
	OriginatingHitAddress uuid.UUID

	Position                Vec3
	ExpectedShowerDirection Vec3
	CellNormal              Vec3
	CellSizeTransverse      float64
	CellSizeLongitudinal    float64

	EnergyEM     float64
	EnergyHad    float64
	EnergyInput  float64
	DensityWeight float64

	Type            HitType
	Region          Region
	PseudoLayer     uint32
	IsPossibleMip   bool
	IsIsolated      bool
	RadiationDepth  float64

	// MCParticle is the handle of the truth particle this hit was
	// generated from, or the zero Handle if MC truth is absent. Every
	// reader must treat it as optional per spec §9's "MC hooks are pure
	// observers" note.
	MCParticle Handle[MCParticle]
}

// Granularity is a convenience accessor matching the hit's type.
func (h *CaloHit) Granularity() Granularity { return h.Type.Granularity() }

// OrderedCaloHitList maps pseudo-layer to the hits in that layer,
// preserving §3.1's "insertion preserves per-hit sort... tie-break by
// stable pointer-identity" contract via the hit Handle's creation-order
// index as the deterministic tie-break.
type OrderedCaloHitList struct {
	byLayer map[uint32]set.Set[Handle[CaloHit]]
}

// NewOrderedCaloHitList returns an empty list.
func NewOrderedCaloHitList() *OrderedCaloHitList {
	return &OrderedCaloHitList{byLayer: make(map[uint32]set.Set[Handle[CaloHit]])}
}

// Add inserts hit at its layer.
func (l *OrderedCaloHitList) Add(layer uint32, hit Handle[CaloHit]) {
	s, ok := l.byLayer[layer]
	if !ok {
		s = set.Set[Handle[CaloHit]]{}
		l.byLayer[layer] = s
	}
	s.Add(hit)
}

// Remove deletes hit from layer, pruning the layer entry if it becomes empty.
func (l *OrderedCaloHitList) Remove(layer uint32, hit Handle[CaloHit]) {
	s, ok := l.byLayer[layer]
	if !ok {
		return
	}
	s.Remove(hit)
	if s.Len() == 0 {
		delete(l.byLayer, layer)
	}
}

// Layers returns the occupied pseudo-layers in ascending order.
func (l *OrderedCaloHitList) Layers() []uint32 {
	layers := make([]uint32, 0, len(l.byLayer))
	for layer := range l.byLayer {
		layers = append(layers, layer)
	}
	sortUint32(layers)
	return layers
}

// InLayer returns the hits in layer, in deterministic
// (sort-key asc, index tie-break) order as produced by less.
func (l *OrderedCaloHitList) InLayer(layer uint32, less func(a, b Handle[CaloHit]) bool) []Handle[CaloHit] {
	s, ok := l.byLayer[layer]
	if !ok {
		return nil
	}
	return set.Sorted(s, withIndexTiebreak(less))
}

// InLayerRange returns the union of hits across [from, to] inclusive, in
// deterministic order.
func (l *OrderedCaloHitList) InLayerRange(from, to uint32, less func(a, b Handle[CaloHit]) bool) []Handle[CaloHit] {
	var out []Handle[CaloHit]
	for layer := from; layer <= to; layer++ {
		out = append(out, l.InLayer(layer, less)...)
		if layer == to {
			break // guard uint32 overflow when to == ^uint32(0)
		}
	}
	return out
}

// All returns every hit across all layers, ordered by
// (layer asc, less asc, index tie-break).
func (l *OrderedCaloHitList) All(less func(a, b Handle[CaloHit]) bool) []Handle[CaloHit] {
	var out []Handle[CaloHit]
	for _, layer := range l.Layers() {
		out = append(out, l.InLayer(layer, less)...)
	}
	return out
}

// Len returns the total number of hits across all layers.
func (l *OrderedCaloHitList) Len() int {
	n := 0
	for _, s := range l.byLayer {
		n += s.Len()
	}
	return n
}

// InnerLayer returns the lowest occupied pseudo-layer and whether the
// list is non-empty.
func (l *OrderedCaloHitList) InnerLayer() (uint32, bool) {
	layers := l.Layers()
	if len(layers) == 0 {
		return 0, false
	}
	return layers[0], true
}

// OuterLayer returns the highest occupied pseudo-layer and whether the
// list is non-empty.
func (l *OrderedCaloHitList) OuterLayer() (uint32, bool) {
	layers := l.Layers()
	if len(layers) == 0 {
		return 0, false
	}
	return layers[len(layers)-1], true
}

// Union returns a new list containing the hits of both lists, per
// §3.1's "supports union/difference at layer granularity."
func (l *OrderedCaloHitList) Union(other *OrderedCaloHitList) *OrderedCaloHitList {
	out := NewOrderedCaloHitList()
	for layer, s := range l.byLayer {
		out.byLayer[layer] = s.Clone()
	}
	for layer, s := range other.byLayer {
		existing, ok := out.byLayer[layer]
		if !ok {
			out.byLayer[layer] = s.Clone()
			continue
		}
		out.byLayer[layer] = existing.Union(s)
	}
	return out
}

// Difference returns a new list containing this list's hits minus other's.
func (l *OrderedCaloHitList) Difference(other *OrderedCaloHitList) *OrderedCaloHitList {
	out := NewOrderedCaloHitList()
	for layer, s := range l.byLayer {
		otherSet, ok := other.byLayer[layer]
		if !ok {
			out.byLayer[layer] = s.Clone()
			continue
		}
		diff := s.Subtract(otherSet)
		if diff.Len() > 0 {
			out.byLayer[layer] = diff
		}
	}
	return out
}

func withIndexTiebreak(less func(a, b Handle[CaloHit]) bool) func(a, b Handle[CaloHit]) bool {
	return func(a, b Handle[CaloHit]) bool {
		if less != nil {
			switch {
			case less(a, b):
				return true
			case less(b, a):
				return false
			}
		}
		return a.Index() < b.Index()
	}
}

func sortUint32(xs []uint32) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
