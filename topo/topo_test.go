// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package topo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/objstore"
)

func newHit(store *objstore.Store, layer uint32, z float64) objstore.Handle[objstore.CaloHit] {
	return store.CreateHit(objstore.CaloHit{
		OriginatingHitAddress: uuid.New(),
		Position:              objstore.Vec3{X: 0, Y: 0, Z: z},
		PseudoLayer:           layer,
		EnergyInput:           0.1,
		EnergyEM:              0.1,
		Type:                  objstore.HitECAL,
		CellSizeTransverse:    10,
	})
}

func TestSoftClusterPassMergesSmallDaughter(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	var parentHits []objstore.Handle[objstore.CaloHit]
	for l := uint32(0); l < 5; l++ {
		parentHits = append(parentHits, newHit(store, l, float64(l)*10))
	}
	parent, err := store.CreateClusterFromHits(parentHits)
	require.NoError(err)

	daughterHit := newHit(store, 5, 51)
	daughter, err := store.CreateClusterFromHits([]objstore.Handle[objstore.CaloHit]{daughterHit})
	require.NoError(err)

	pc, _ := store.Cluster(parent)
	dc, _ := store.Cluster(daughter)
	fit.UpdateDerivedState(store, pc)
	fit.UpdateDerivedState(store, dc)

	stage := NewStage()
	stage.settings.EnabledPasses = []Pass{PassSoftCluster}
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	require.Len(store.AllClusters(), 1)
	merged, ok := store.Cluster(store.AllClusters()[0])
	require.True(ok)
	require.Equal(6, merged.NHits())
}

func TestRunBeforeInitializeFails(t *testing.T) {
	require := require.New(t)
	stage := NewStage()
	_, err := stage.Run(&engine.RunContext{Store: objstore.New(nil)})
	require.Error(err)
}

func TestCanMergeClusterGate(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)
	h := newHit(store, 0, 0)
	ch, err := store.CreateClusterFromHits([]objstore.Handle[objstore.CaloHit]{h})
	require.NoError(err)
	c, _ := store.Cluster(ch)
	fit.UpdateDerivedState(store, c)

	s := DefaultSettings()
	c.SetMipFraction(0)
	c.SetFitToAllHits(objstore.FitResult{RMS: 100})
	require.False(s.canMergeCluster(c))

	c.SetMipFraction(0.95)
	require.True(s.canMergeCluster(c))
}
