// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/objstore"
)

type fakeStage struct {
	run func(*engine.RunContext) (engine.Status, error)
}

func (f *fakeStage) ReadSettings(config.ConfigHandle) error { return nil }
func (f *fakeStage) Initialize() error                      { return nil }
func (f *fakeStage) Run(rc *engine.RunContext) (engine.Status, error) {
	return f.run(rc)
}

func TestRunOnceSummarizesPFOs(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	driver := NewDriver(nil, nil)
	driver.AddStage("make-pfo", &fakeStage{run: func(rc *engine.RunContext) (engine.Status, error) {
		_, err := rc.Store.CreatePFO(objstore.ParticleFlowObject{Charge: 1, Energy: 3.0})
		return engine.StatusSuccess, err
	}})

	require.NoError(driver.ReadSettingsAndInitialize(nil))
	result, err := driver.RunOnce(&Event{Store: store, ID: 1})
	require.NoError(err)
	require.Equal(1, result.PFOCount)
	require.Equal(1, result.ChargedPFOCount)
	require.InDelta(3.0, result.TotalEnergy, 1e-9)
}

func TestRunOnceRollsBackOnStageError(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	driver := NewDriver(nil, nil)
	driver.AddStage("create-then-ok", &fakeStage{run: func(rc *engine.RunContext) (engine.Status, error) {
		_, err := rc.Store.CreatePFO(objstore.ParticleFlowObject{Energy: 1})
		return engine.StatusSuccess, err
	}})
	driver.AddStage("fail", &fakeStage{run: func(rc *engine.RunContext) (engine.Status, error) {
		return engine.StatusNotApplicable, errors.New("boom")
	}})

	require.NoError(driver.ReadSettingsAndInitialize(nil))
	_, err := driver.RunOnce(&Event{Store: store, ID: 1})
	require.Error(err)
	require.Empty(store.AllPFOs())
}

func TestMCConfusionReportSkipsPFOsWithoutMCLink(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	track := store.CreateTrack(objstore.Track{})
	ph, err := store.CreatePFO(objstore.ParticleFlowObject{Energy: 5})
	require.NoError(err)
	require.NoError(store.AddTrackToPFO(ph, track))

	require.Empty(MCConfusionReport(store))
}

func TestMCConfusionReportComputesResidual(t *testing.T) {
	require := require.New(t)
	store := objstore.New(nil)

	mc := store.CreateMCParticle(objstore.MCParticle{Energy: 4.0})
	track := store.CreateTrack(objstore.Track{MCParticle: mc})
	ph, err := store.CreatePFO(objstore.ParticleFlowObject{Energy: 5})
	require.NoError(err)
	require.NoError(store.AddTrackToPFO(ph, track))

	report := MCConfusionReport(store)
	require.Len(report, 1)
	require.InDelta(4.0, report[0].TrueEnergy, 1e-9)
	require.InDelta(1.0, report[0].Residual, 1e-9)
}
