// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pfo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/fit"
	"github.com/luxfi/pflow/objstore"
)

func TestBuildsChargedPFOForRootTrack(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	track := store.CreateTrack(objstore.Track{
		Charge:             1,
		Mass:               0.13957,
		EnergyAtDCA:        2.0,
		MomentumAtDCA:      objstore.Vec3{X: 0, Y: 0, Z: 2.0},
		ReachesCalorimeter: true,
		CanFormPFO:         true,
	})
	_ = track

	stage := NewStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	pfos := store.AllPFOs()
	require.Len(pfos, 1)
	p, ok := store.PFO(pfos[0])
	require.True(ok)
	require.Equal(1, p.Charge)
	require.InDelta(2.0, p.Energy, 1e-9)
}

func TestBuildsNeutralPFOForTracklessCluster(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	var hits []objstore.Handle[objstore.CaloHit]
	for l := uint32(0); l < 5; l++ {
		hits = append(hits, store.CreateHit(objstore.CaloHit{
			OriginatingHitAddress: uuid.New(),
			Position:              objstore.Vec3{X: 10, Y: 0, Z: float64(l) * 10},
			PseudoLayer:           l,
			EnergyInput:           1.0,
			EnergyEM:              1.0,
			Type:                  objstore.HitECAL,
			CellSizeTransverse:    10,
		}))
	}
	ch, err := store.CreateClusterFromHits(hits)
	require.NoError(err)
	c, _ := store.Cluster(ch)
	fit.UpdateDerivedState(store, c)

	stage := NewStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	pfos := store.AllPFOs()
	require.Len(pfos, 1)
	p, ok := store.PFO(pfos[0])
	require.True(ok)
	require.Equal(0, p.Charge)
	require.Equal(int32(2112), p.ParticleID)
}

func TestKinkDetectionRetagsPionToMuNuDecay(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	// A pion decaying near rest to mu+nu: parent momentum ~0 at the kink
	// vertex, muon daughter carrying the two-body momentum split implied
	// by m_pi=0.13957, m_mu=0.10566 (p = (m_pi^2-m_mu^2)/(2*m_pi)).
	parent := store.CreateTrack(objstore.Track{
		Charge:             1,
		Mass:               0.13957,
		EnergyAtDCA:        0.14,
		MomentumAtDCA:      objstore.Vec3{X: 0, Y: 0, Z: 0.05},
		AtEnd:              objstore.HelixState{Momentum: objstore.Vec3{}},
		ReachesCalorimeter: true,
		CanFormPFO:         true,
	})
	daughter := store.CreateTrack(objstore.Track{
		Charge:      1,
		Mass:        0.10566,
		EnergyAtDCA: 0.10978,
		AtStart:     objstore.HelixState{Momentum: objstore.Vec3{X: 0.029788}},
	})
	store.LinkTrackParentDaughter(parent, daughter)

	stage := NewStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	status, err := stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Equal(engine.StatusSuccess, status)

	pfos := store.AllPFOs()
	require.Len(pfos, 1)
	p, ok := store.PFO(pfos[0])
	require.True(ok)
	require.Equal(int32(211), p.ParticleID)
}

func TestKinkMassFormulaMatchesTwoBodyDecay(t *testing.T) {
	require := require.New(t)
	mass, ok := kinkMass(objstore.Vec3{}, objstore.Vec3{X: 0.029788}, 0.10566, 0)
	require.True(ok)
	require.InDelta(0.13957, mass, 1e-4)
}

func TestLowEnergyTracklessClusterProducesNoPFO(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	h := store.CreateHit(objstore.CaloHit{
		OriginatingHitAddress: uuid.New(),
		Position:              objstore.Vec3{X: 10, Y: 0, Z: 0},
		PseudoLayer:           0,
		EnergyInput:           0.01,
		EnergyEM:              0.01,
		Type:                  objstore.HitECAL,
		CellSizeTransverse:    10,
	})
	ch, err := store.CreateClusterFromHits([]objstore.Handle[objstore.CaloHit]{h})
	require.NoError(err)
	c, _ := store.Cluster(ch)
	fit.UpdateDerivedState(store, c)

	stage := NewStage()
	require.NoError(stage.ReadSettings(nil))
	require.NoError(stage.Initialize())

	_, err = stage.Run(&engine.RunContext{Store: store})
	require.NoError(err)
	require.Empty(store.AllPFOs())
}
