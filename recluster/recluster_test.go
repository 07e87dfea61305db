// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package recluster

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/objstore"
)

var errFake = errors.New("fake variant init failure")

type noopStage struct{ initErr error }

func (n *noopStage) ReadSettings(config.ConfigHandle) error { return nil }
func (n *noopStage) Initialize() error                      { return n.initErr }
func (n *noopStage) Run(*engine.RunContext) (engine.Status, error) {
	return engine.StatusSuccess, nil
}

func buildClusterWithTracks(store *objstore.Store, trackEnergies []float64, clusterEnergy float64) objstore.Handle[objstore.Cluster] {
	h := store.CreateHit(objstore.CaloHit{
		OriginatingHitAddress: uuid.New(),
		Position:              objstore.Vec3{X: 0, Y: 0, Z: 0},
		PseudoLayer:           0,
		EnergyInput:           clusterEnergy,
		EnergyEM:              clusterEnergy,
		Type:                  objstore.HitECAL,
		CellSizeTransverse:    10,
	})
	ch, err := store.CreateClusterFromHits([]objstore.Handle[objstore.CaloHit]{h})
	if err != nil {
		panic(err)
	}
	c, _ := store.Cluster(ch)
	c.SetLayerSpan(0, 0, map[uint32]objstore.Vec3{0: {}})
	c.SetEnergies(clusterEnergy, 0, clusterEnergy)
	for _, e := range trackEnergies {
		track := store.CreateTrack(objstore.Track{EnergyAtDCA: e})
		c.Tracks.Add(track)
	}
	return ch
}

func TestFindReclusterCandidatesGatesOnTracksAndChi(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	bad := buildClusterWithTracks(store, []float64{5, 5}, 1)
	good := buildClusterWithTracks(store, []float64{5, 5}, 10)

	stage := NewStage([]Variant{{Cluster: &noopStage{}, Topo: &noopStage{}, TrackAssoc: &noopStage{}}})
	candidates := stage.findReclusterCandidates(store)

	require.Contains(candidates, bad)
	require.NotContains(candidates, good)
}

func TestInitializeRejectsEmptyVariants(t *testing.T) {
	require := require.New(t)
	stage := NewStage(nil)
	require.Error(stage.Initialize())
}

func TestInitializePropagatesVariantError(t *testing.T) {
	require := require.New(t)
	stage := NewStage([]Variant{{
		Cluster:    &noopStage{initErr: errFake},
		Topo:       &noopStage{},
		TrackAssoc: &noopStage{},
	}})
	require.Error(stage.Initialize())
}
