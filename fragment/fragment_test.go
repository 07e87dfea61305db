// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fragment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/objstore"
)

func hitAt(store *objstore.Store, layer uint32, x float64) objstore.Handle[objstore.CaloHit] {
	return store.CreateHit(objstore.CaloHit{
		OriginatingHitAddress: uuid.New(),
		Position:              objstore.Vec3{X: x, Y: 0, Z: float64(layer) * 10},
		PseudoLayer:           layer,
		EnergyInput:           0.1,
		EnergyEM:              0.1,
		Type:                  objstore.HitECAL,
		CellSizeTransverse:    10,
	})
}

func TestFragmentRemovalMergesSmallDaughterIntoContactingParent(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	var parentHits []objstore.Handle[objstore.CaloHit]
	for l := uint32(0); l < 5; l++ {
		parentHits = append(parentHits, hitAt(store, l, 0))
	}
	parent, err := store.CreateClusterFromHits(parentHits)
	require.NoError(err)

	var daughterHits []objstore.Handle[objstore.CaloHit]
	for l := uint32(1); l < 4; l++ {
		daughterHits = append(daughterHits, hitAt(store, l, 0))
	}
	daughter, err := store.CreateClusterFromHits(daughterHits)
	require.NoError(err)

	pc, _ := store.Cluster(parent)
	dc, _ := store.Cluster(daughter)
	fit.UpdateDerivedState(store, pc)
	fit.UpdateDerivedState(store, dc)

	stage := NewStage(FlowMain)
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	require.Len(store.AllClusters(), 1)
	merged, ok := store.Cluster(store.AllClusters()[0])
	require.True(ok)
	require.Equal(8, merged.NHits())
}

func TestTrackedClusterNeverCandidateDaughter(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)
	h := hitAt(store, 0, 0)
	ch, err := store.CreateClusterFromHits([]objstore.Handle[objstore.CaloHit]{h})
	require.NoError(err)
	c, _ := store.Cluster(ch)
	track := store.CreateTrack(objstore.Track{})
	c.Tracks.Add(track)

	stage := NewStage(FlowMain)
	require.False(stage.isCandidateDaughter(c))
}

func TestInitializeRejectsNonPositivePasses(t *testing.T) {
	require := require.New(t)
	stage := NewStage(FlowNeutral)
	stage.settings.NMaxPasses = 0
	require.Error(stage.Initialize())
}
