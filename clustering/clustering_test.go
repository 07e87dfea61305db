// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clustering

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/objstore"
)

func seedStoreWithShower(store *objstore.Store, nLayers int) {
	var hits []objstore.Handle[objstore.CaloHit]
	for l := 0; l < nLayers; l++ {
		h := store.CreateHit(objstore.CaloHit{
			OriginatingHitAddress: uuid.New(),
			Position:              objstore.Vec3{X: 0, Y: 0, Z: float64(l) * 10},
			PseudoLayer:           uint32(l),
			EnergyInput:           1.0,
			EnergyEM:              1.0,
			Type:                  objstore.HitECAL,
			CellSizeTransverse:    10,
		})
		hits = append(hits, h)
	}
	_ = store.HitLists.Save("current", hits, objstore.AppendIfExists)
	_ = store.HitLists.ReplaceCurrent("current")
	_ = store.TrackLists.Save("current", nil, objstore.AppendIfExists)
	_ = store.TrackLists.ReplaceCurrent("current")
}

func TestConeClusteringGrowsSingleCluster(t *testing.T) {
	require := require.New(t)

	store := objstore.New(nil)
	seedStoreWithShower(store, 10)

	stage := NewInwardStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	require.Len(store.AllClusters(), 1)
	c, ok := store.Cluster(store.AllClusters()[0])
	require.True(ok)
	require.Equal(10, c.NHits())
}

func TestConeClusteringRunBeforeInitializeFails(t *testing.T) {
	require := require.New(t)
	stage := NewStage()
	_, err := stage.Run(&engine.RunContext{Store: objstore.New(nil)})
	require.Error(err)
}
