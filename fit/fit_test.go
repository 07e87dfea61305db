// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/objstore"
)

func addHit(store *objstore.Store, cluster objstore.Handle[objstore.Cluster], layer uint32, pos objstore.Vec3, energy float64) {
	h := store.CreateHit(objstore.CaloHit{
		OriginatingHitAddress: uuid.New(),
		Position:              pos,
		PseudoLayer:           layer,
		EnergyInput:           energy,
		EnergyEM:              energy,
		Type:                  objstore.HitECAL,
		CellSizeTransverse:    10,
	})
	c, _ := store.Cluster(cluster)
	c.Primary.Add(layer, h)
}

func TestFitLayersStraightLine(t *testing.T) {
	require := require.New(t)

	store := objstore.New(nil)
	seed := store.CreateHit(objstore.CaloHit{OriginatingHitAddress: uuid.New(), PseudoLayer: 0})
	cluster, err := store.CreateClusterFromHit(seed)
	require.NoError(err)

	for layer := uint32(1); layer <= 5; layer++ {
		addHit(store, cluster, layer, objstore.Vec3{X: 0, Y: 0, Z: float64(layer) * 10}, 1.0)
	}

	c, _ := store.Cluster(cluster)
	result := FitLayers(store, c, 0, 5)
	require.True(result.Success)
	require.InDelta(1.0, result.Direction.Z*result.Direction.Z, 1e-6)
	require.InDelta(0, result.RMS, 1e-6)
}

func TestFitFailsBelowTwoLayers(t *testing.T) {
	require := require.New(t)

	store := objstore.New(nil)
	seed := store.CreateHit(objstore.CaloHit{OriginatingHitAddress: uuid.New(), PseudoLayer: 0, EnergyInput: 1})
	cluster, err := store.CreateClusterFromHit(seed)
	require.NoError(err)

	c, _ := store.Cluster(cluster)
	result := FitLayers(store, c, 0, 0)
	require.False(result.Success)
}

func TestFractionOfHitsInCone(t *testing.T) {
	require := require.New(t)

	store := objstore.New(nil)
	seed := store.CreateHit(objstore.CaloHit{OriginatingHitAddress: uuid.New(), PseudoLayer: 0})
	cluster, err := store.CreateClusterFromHit(seed)
	require.NoError(err)

	addHit(store, cluster, 1, objstore.Vec3{X: 0, Y: 0, Z: 10}, 1.0)
	addHit(store, cluster, 1, objstore.Vec3{X: 100, Y: 0, Z: 1}, 1.0)

	c, _ := store.Cluster(cluster)
	frac := FractionOfHitsInCone(store, c, objstore.Vec3{}, objstore.Vec3{X: 0, Y: 0, Z: 1}, 0.9)
	require.InDelta(1.0/3.0, frac, 1e-6)
}

func TestClusterContactDetails(t *testing.T) {
	require := require.New(t)

	store := objstore.New(nil)
	seedA := store.CreateHit(objstore.CaloHit{OriginatingHitAddress: uuid.New(), PseudoLayer: 0})
	a, err := store.CreateClusterFromHit(seedA)
	require.NoError(err)
	seedB := store.CreateHit(objstore.CaloHit{OriginatingHitAddress: uuid.New(), PseudoLayer: 0})
	b, err := store.CreateClusterFromHit(seedB)
	require.NoError(err)

	addHit(store, a, 1, objstore.Vec3{X: 0, Y: 0, Z: 0}, 1.0)
	addHit(store, b, 1, objstore.Vec3{X: 1, Y: 0, Z: 0}, 1.0)
	addHit(store, a, 2, objstore.Vec3{X: 0, Y: 0, Z: 0}, 1.0)
	addHit(store, b, 2, objstore.Vec3{X: 1000, Y: 0, Z: 0}, 1.0)

	ca, _ := store.Cluster(a)
	cb, _ := store.Cluster(b)
	details := ClusterContactDetails(store, ca, cb, 5.0)
	require.Equal(1, details.NContactLayers)
	require.InDelta(1.0/3.0, details.ContactFraction, 1e-9)
}

func TestTrackClusterCompatibility(t *testing.T) {
	require := require.New(t)

	chi := TrackClusterCompatibility(10.0, 10.0, 0.1)
	require.InDelta(0, chi, 1e-9)

	chi = TrackClusterCompatibility(0, 10.0, 0.1)
	require.Less(chi, 0.0)
}
