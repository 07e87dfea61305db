// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/errs"
	"github.com/luxfi/pflow/objstore"
)

func TestGetMaximumRadiusCircular(t *testing.T) {
	require := require.New(t)
	r := GetMaximumRadius(1, 0, 3, 4)
	require.InDelta(5.0, r, 1e-9)
}

func TestGetMaximumRadiusPolygon(t *testing.T) {
	require := require.New(t)
	r := GetMaximumRadius(4, 0, 1, 0)
	require.InDelta(1.0, r, 1e-9)
}

func TestBoxGapContains(t *testing.T) {
	require := require.New(t)
	g := BoxGap{Min: objstore.Vec3{X: -1, Y: -1, Z: -1}, Max: objstore.Vec3{X: 1, Y: 1, Z: 1}}
	require.True(g.Contains(objstore.Vec3{}))
	require.False(g.Contains(objstore.Vec3{X: 5}))
}

func TestAnnulusGapContains(t *testing.T) {
	require := require.New(t)
	g := AnnulusGap{InnerR: 10, OuterR: 20, MinZ: -5, MaxZ: 5}
	require.True(g.Contains(objstore.Vec3{X: 15, Z: 0}))
	require.False(g.Contains(objstore.Vec3{X: 5, Z: 0}))
	require.False(g.Contains(objstore.Vec3{X: 15, Z: 10}))
}

func TestPseudoLayerCalculatorBarrel(t *testing.T) {
	require := require.New(t)
	barrel := SubDetectorGeometry{
		OuterR: 200, OuterZ: 300, SymmetryOrder: 1,
		Layers: []LayerBoundary{{OuterEdge: 10}, {OuterEdge: 20}, {OuterEdge: 30}},
	}
	endcap := SubDetectorGeometry{Layers: []LayerBoundary{{OuterEdge: 10}}}
	calc := NewBarrelEndcapPseudoLayerCalculator(barrel, endcap)

	layer, region, err := calc.PseudoLayer(objstore.Vec3{X: 15, Y: 0, Z: 0})
	require.NoError(err)
	require.Equal(objstore.RegionBarrel, region)
	require.Equal(uint32(1), layer)
}

func TestPseudoLayerCalculatorEndcap(t *testing.T) {
	require := require.New(t)
	barrel := SubDetectorGeometry{OuterR: 200, OuterZ: 300, SymmetryOrder: 1}
	endcap := SubDetectorGeometry{
		Layers: []LayerBoundary{{OuterEdge: 310}, {OuterEdge: 320}},
	}
	calc := NewBarrelEndcapPseudoLayerCalculator(barrel, endcap)

	layer, region, err := calc.PseudoLayer(objstore.Vec3{X: 0, Y: 0, Z: 315})
	require.NoError(err)
	require.Equal(objstore.RegionEndcap, region)
	require.Equal(uint32(1), layer)
}

func TestPseudoLayerCalculatorOriginIsInvalid(t *testing.T) {
	require := require.New(t)
	calc := NewBarrelEndcapPseudoLayerCalculator(SubDetectorGeometry{}, SubDetectorGeometry{})
	_, _, err := calc.PseudoLayer(objstore.Vec3{})
	require.True(errs.Is(err, errs.InvalidParameter))
}

func TestConstantBField(t *testing.T) {
	require := require.New(t)
	b := ConstantBField{Tesla: 3.5}
	v, err := b.BField(objstore.Vec3{})
	require.NoError(err)
	require.InDelta(3.5, v, 1e-9)

	zero := ConstantBField{}
	_, err = zero.BField(objstore.Vec3{})
	require.Error(err)
	require.True(errs.Is(err, errs.InvalidParameter))
}
