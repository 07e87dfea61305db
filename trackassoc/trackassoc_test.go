// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trackassoc

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/objstore"
)

func buildTrackAndCluster(store *objstore.Store) (objstore.Handle[objstore.Track], objstore.Handle[objstore.Cluster]) {
	track := store.CreateTrack(objstore.Track{
		Charge:             1,
		ReachesCalorimeter: true,
		CanFormPFO:         true,
		AtECal: objstore.HelixState{
			Position: objstore.Vec3{X: 0, Y: 0, Z: 0},
			Momentum: objstore.Vec3{X: 0, Y: 0, Z: 1},
		},
	})
	_ = store.TrackLists.Save("current", []objstore.Handle[objstore.Track]{track}, objstore.AppendIfExists)
	_ = store.TrackLists.ReplaceCurrent("current")

	var hits []objstore.Handle[objstore.CaloHit]
	for l := uint32(0); l < 5; l++ {
		h := store.CreateHit(objstore.CaloHit{
			OriginatingHitAddress: uuid.New(),
			Position:              objstore.Vec3{X: 1, Y: 0, Z: float64(l) * 10},
			PseudoLayer:           l,
			EnergyInput:           0.2,
			EnergyEM:              0.2,
			Type:                  objstore.HitECAL,
			CellSizeTransverse:    10,
		})
		hits = append(hits, h)
	}
	cluster, err := store.CreateClusterFromHits(hits)
	if err != nil {
		panic(err)
	}
	c, _ := store.Cluster(cluster)
	fit.UpdateDerivedState(store, c)
	return track, cluster
}

func TestAssociatesNearbyTrack(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)
	track, cluster := buildTrackAndCluster(store)

	stage := NewStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	tr, ok := store.Track(track)
	require.True(ok)
	assoc, has := tr.AssociatedCluster()
	require.True(has)
	require.Equal(cluster, assoc)
}

func TestDistanceRejectsFarHits(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)
	_, cluster := buildTrackAndCluster(store)

	track := &objstore.Track{
		AtECal: objstore.HelixState{
			Position: objstore.Vec3{X: 1000, Y: 1000, Z: 0},
			Momentum: objstore.Vec3{X: 0, Y: 0, Z: 1},
		},
	}
	c, _ := store.Cluster(cluster)

	s := DefaultSettings()
	d := s.GetTrackClusterDistance(store, track, c)
	require.Greater(d, s.MaxTrackClusterDistance)
}

func TestInitializeRejectsNonPositiveDistance(t *testing.T) {
	require := require.New(t)
	stage := NewStage()
	stage.settings.MaxTrackClusterDistance = 0
	require.Error(stage.Initialize())
}
