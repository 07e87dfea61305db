// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package clustering implements the cone-clustering stage (spec §4.D):
// seeded, layer-by-layer cone growth over an event's ordered hit list,
// producing the engine's initial cluster set.
package clustering

import (
	"github.com/luxfi/pflow/config"
)

// Option names beyond the generic ones config.Opt* already names
// (spec §6's table is "a representative subset"; the rest follow the
// source's per-stage ReadSettings).
const (
	optSeedCosThetaCut             = "ConeClustering.SeedCosThetaCut"
	optPadWidthFine                = "ConeClustering.PadWidthFine"
	optPadWidthCoarse              = "ConeClustering.PadWidthCoarse"
	optMaxLayersToTrackSeed        = "ConeClustering.MaxLayersToTrackSeed"
	optMaxLayersToTrackLikeHit     = "ConeClustering.MaxLayersToTrackLikeHit"
	optTrackPathWidth              = "ConeClustering.TrackPathWidth"
	optMinClusterDirProjection     = "ConeClustering.MinClusterDirProjection"
	optMaxClusterDirProjection     = "ConeClustering.MaxClusterDirProjection"
	optConeApproachMaxSeparation   = "ConeClustering.ConeApproachMaxSeparation"
	optMinHitClusterCosAngle       = "ConeClustering.MinHitClusterCosAngle"
	optMinHitTrackCosAngle         = "ConeClustering.MinHitTrackCosAngle"
	optStepBackFine                = "ConeClustering.StepBackFine"
	optStepBackCoarse              = "ConeClustering.StepBackCoarse"
	optNLayersSpannedForFit        = "ConeClustering.NLayersSpannedForFit"
	optNLayersSpannedForApproxFit  = "ConeClustering.NLayersSpannedForApproxFit"
	optNLayersToFit                = "ConeClustering.NLayersToFit"
	optFitSuccessDotCut1           = "ConeClustering.FitSuccessDotCut1"
	optFitSuccessChi2Cut1          = "ConeClustering.FitSuccessChi2Cut1"
	optFitSuccessDotCut2           = "ConeClustering.FitSuccessDotCut2"
	optFitSuccessChi2Cut2          = "ConeClustering.FitSuccessChi2Cut2"
	optMipTrackChi2Cut             = "ConeClustering.MipTrackChi2Cut"
	optGrowPreferentiallyInitialDir = "ConeClustering.GrowPreferentiallyInInitialDirection"
	optInward                      = "ConeClustering.Inward"
)

// Settings is the cone-clustering stage's full parameter set (spec
// §4.D). DefaultSettings gives the outward, track-seeded variant;
// NewInwardSettings gives the ECAL-photon-finding variant spec §4.D's
// closing paragraph describes (reversed layer order, seeding disabled,
// density-weight ordering).
type Settings struct {
	SeedStrategy      config.ClusterSeedStrategy
	SeedCosThetaCut   float64
	HitSorting        config.HitSortingStrategy
	FormationStrategy config.ClusterFormationStrategy
	Inward            bool

	GenericDistanceCut float64

	TanConeAngleFine   float64
	TanConeAngleCoarse float64
	PadWidthFine       float64
	PadWidthCoarse     float64

	MaxLayersToTrackSeed      uint32
	MaxLayersToTrackLikeHit   uint32
	TrackPathWidth            float64
	MinClusterDirProjection   float64
	MaxClusterDirProjection   float64
	ConeApproachMaxSeparation float64

	MinHitClusterCosAngle float64
	MinHitTrackCosAngle   float64

	StepBackFine   uint32
	StepBackCoarse uint32

	NLayersSpannedForFit       uint32
	NLayersSpannedForApproxFit uint32
	NLayersToFit               uint32
	FitSuccessDotCut1          float64
	FitSuccessChi2Cut1         float64
	FitSuccessDotCut2          float64
	FitSuccessChi2Cut2         float64
	MipTrackChi2Cut            float64

	GrowPreferentiallyInInitialDirection bool
}

// DefaultSettings returns the outward (standard) cone-clustering
// parameter set.
func DefaultSettings() Settings {
	return Settings{
		SeedStrategy:              config.SeedAllTracks,
		SeedCosThetaCut:           0.9,
		HitSorting:                config.SortByInputEnergyDesc,
		FormationStrategy:         config.FormationImmediate,
		GenericDistanceCut:        1.0,
		TanConeAngleFine:          0.3,
		TanConeAngleCoarse:        0.5,
		PadWidthFine:              10,
		PadWidthCoarse:            30,
		MaxLayersToTrackSeed:      3,
		MaxLayersToTrackLikeHit:   2,
		TrackPathWidth:            20,
		MinClusterDirProjection:   -100,
		MaxClusterDirProjection:   1e6,
		ConeApproachMaxSeparation: 1e6,
		MinHitClusterCosAngle:     0,
		MinHitTrackCosAngle:       0,
		StepBackFine:              2,
		StepBackCoarse:            3,
		NLayersSpannedForFit:      6,
		NLayersSpannedForApproxFit: 4,
		NLayersToFit:              6,
		FitSuccessDotCut1:         0.9,
		FitSuccessChi2Cut1:        2.0,
		FitSuccessDotCut2:         0.7,
		FitSuccessChi2Cut2:        0.5,
		MipTrackChi2Cut:           2.5,
	}
}

// NewInwardSettings returns the ECAL-photon-finding variant: layer
// order reversed, track seeding disabled, density-weight ordering.
func NewInwardSettings() Settings {
	s := DefaultSettings()
	s.Inward = true
	s.SeedStrategy = config.SeedNone
	s.HitSorting = config.SortByDensityWeightDesc
	return s
}

// ReadSettings populates s from cfg, leaving any option absent from cfg
// at its current (default) value. A nil cfg leaves s unchanged.
func (s *Settings) ReadSettings(cfg config.ConfigHandle) error {
	if cfg == nil {
		return nil
	}
	if v, ok, err := cfg.GetUint(config.OptClusterSeedStrategy); err != nil {
		return err
	} else if ok {
		s.SeedStrategy = config.ClusterSeedStrategy(v)
	}
	if v, ok, err := cfg.GetUint(config.OptHitSortingStrategy); err != nil {
		return err
	} else if ok {
		s.HitSorting = config.HitSortingStrategy(v)
	}
	if v, ok, err := cfg.GetUint(config.OptClusterFormationStategy); err != nil {
		return err
	} else if ok {
		s.FormationStrategy = config.ClusterFormationStrategy(v)
	}
	if v, ok, err := cfg.GetFloat64(config.OptGenericDistanceCut); err != nil {
		return err
	} else if ok {
		s.GenericDistanceCut = v
	}
	if v, ok, err := cfg.GetFloat64(config.OptTanConeAngleFine); err != nil {
		return err
	} else if ok {
		s.TanConeAngleFine = v
	}
	if v, ok, err := cfg.GetFloat64(config.OptTanConeAngleCoarse); err != nil {
		return err
	} else if ok {
		s.TanConeAngleCoarse = v
	}
	if v, ok, err := cfg.GetBool(optInward); err != nil {
		return err
	} else if ok {
		s.Inward = v
	}
	if v, ok, err := cfg.GetFloat64(optSeedCosThetaCut); err != nil {
		return err
	} else if ok {
		s.SeedCosThetaCut = v
	}
	return nil
}
