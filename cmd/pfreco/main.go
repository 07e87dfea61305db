// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command pfreco wires the full particle-flow reconstruction pipeline
// over a synthetic single-event store and prints the resulting PFO
// summary. It exists to exercise the engine end to end; real event
// input is an external adapter's responsibility (spec §1).
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/luxfi/pflow/clustering"
	"github.com/luxfi/pflow/config"
	"github.com/luxfi/pflow/engine"
	"github.com/luxfi/pflow/fragment"
	"github.com/luxfi/pflow/log"
	"github.com/luxfi/pflow/objstore"
	"github.com/luxfi/pflow/pfo"
	"github.com/luxfi/pflow/pipeline"
	"github.com/luxfi/pflow/recluster"
	"github.com/luxfi/pflow/topo"
	"github.com/luxfi/pflow/trackassoc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pfreco:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.NewNoOp()
	store := buildSyntheticEvent()

	driver := buildDriver(logger)
	if err := driver.ReadSettingsAndInitialize(config.NewMapConfigHandle(nil, nil)); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	result, err := driver.RunOnce(&pipeline.Event{Store: store, ID: 1})
	if err != nil {
		return fmt.Errorf("run event: %w", err)
	}

	fmt.Printf("PFOs: %d (charged %d, neutral %d), total energy %.3f GeV\n",
		result.PFOCount, result.ChargedPFOCount, result.NeutralPFOCount, result.TotalEnergy)
	fmt.Printf("consumed: %d clusters, %d tracks, %d hits\n",
		result.ClustersConsumed, result.TracksConsumed, result.HitsConsumed)
	return nil
}

// buildDriver registers the registry's built-in stages and composes the
// declared pipeline order from spec.md §2: clustering, topological
// association, track-cluster association, reclustering, fragment
// removal (three flows), PFO construction.
func buildDriver(logger log.Logger) *pipeline.Driver {
	reg := pipeline.NewRegistry()
	reg.RegisterFactory("ConeClustering", func() engine.Stage { return clustering.NewStage() })
	reg.RegisterFactory("ConeClusteringInward", func() engine.Stage { return clustering.NewInwardStage() })
	reg.RegisterFactory("TopologicalAssociation", func() engine.Stage { return topo.NewStage() })
	reg.RegisterFactory("TrackClusterAssociation", func() engine.Stage { return trackassoc.NewStage() })
	reg.RegisterFactory("FragmentRemovalMain", func() engine.Stage { return fragment.NewStage(fragment.FlowMain) })
	reg.RegisterFactory("FragmentRemovalNeutral", func() engine.Stage { return fragment.NewStage(fragment.FlowNeutral) })
	reg.RegisterFactory("FragmentRemovalPhoton", func() engine.Stage { return fragment.NewStage(fragment.FlowPhoton) })
	reg.RegisterFactory("PFOConstruction", func() engine.Stage { return pfo.NewStage() })

	driver := pipeline.NewDriver(logger, nil)

	coneClustering, _ := reg.New("ConeClustering")
	driver.AddStage("cone_clustering", coneClustering)

	topoAssoc, _ := reg.New("TopologicalAssociation")
	driver.AddStage("topological_association", topoAssoc)

	trackAssoc, _ := reg.New("TrackClusterAssociation")
	driver.AddStage("track_cluster_association", trackAssoc)

	reclusterVariants := []recluster.Variant{
		{Name: "cone_tight", Cluster: clustering.NewStage(), Topo: topo.NewStage(), TrackAssoc: trackassoc.NewStage()},
	}
	driver.AddStage("reclustering", recluster.NewStage(reclusterVariants))

	fragMain, _ := reg.New("FragmentRemovalMain")
	driver.AddStage("fragment_removal_main", fragMain)
	fragNeutral, _ := reg.New("FragmentRemovalNeutral")
	driver.AddStage("fragment_removal_neutral", fragNeutral)
	fragPhoton, _ := reg.New("FragmentRemovalPhoton")
	driver.AddStage("fragment_removal_photon", fragPhoton)

	pfoStage, _ := reg.New("PFOConstruction")
	driver.AddStage("pfo_construction", pfoStage)

	return driver
}

// buildSyntheticEvent seeds a minimal but complete event: one charged
// track reaching the calorimeter and a straight-line ECAL shower along
// its path, enough for every stage in the pipeline to have work to do.
func buildSyntheticEvent() *objstore.Store {
	store := objstore.New(nil)

	track := store.CreateTrack(objstore.Track{
		EnergyAtDCA:        5.0,
		MomentumAtDCA:      objstore.Vec3{X: 0, Y: 0, Z: 5.0},
		Charge:             1,
		Mass:               0.13957,
		ReachesCalorimeter: true,
		CanFormPFO:         true,
		AtECal: objstore.HelixState{
			Position: objstore.Vec3{X: 0, Y: 0, Z: 0},
			Momentum: objstore.Vec3{X: 0, Y: 0, Z: 5.0},
		},
	})
	_ = store.TrackLists.Save("current", []objstore.Handle[objstore.Track]{track}, objstore.AppendIfExists)
	_ = store.TrackLists.ReplaceCurrent("current")

	var hits []objstore.Handle[objstore.CaloHit]
	for l := 0; l < 20; l++ {
		h := store.CreateHit(objstore.CaloHit{
			OriginatingHitAddress: uuid.New(),
			Position:              objstore.Vec3{X: 0, Y: 0, Z: float64(l) * 10},
			PseudoLayer:           uint32(l),
			EnergyInput:           0.25,
			EnergyEM:              0.1,
			Type:                  objstore.HitECAL,
			CellSizeTransverse:    10,
		})
		hits = append(hits, h)
	}
	_ = store.HitLists.Save("current", hits, objstore.AppendIfExists)
	_ = store.HitLists.ReplaceCurrent("current")

	return store
}
