// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

// ClusterSeedStrategy selects how cone clustering (§4.D.1) seeds
// track-bound empty clusters before the layer-by-layer growth begins.
type ClusterSeedStrategy int

const (
	// SeedNone creates no track-seeded clusters.
	SeedNone ClusterSeedStrategy = iota
	// SeedAllTracks seeds one empty cluster per track that
	// reaches the calorimeter and can form a PFO.
	SeedAllTracks
	// SeedTracksByCosTheta additionally filters by a cos(theta) cut.
	SeedTracksByCosTheta
)

// HitSortingStrategy selects the per-layer custom sort (§4.D.2.a) used
// before the previous-layer and same-layer matching passes.
type HitSortingStrategy int

const (
	// SortByInputEnergyDesc orders hits by decreasing input energy.
	SortByInputEnergyDesc HitSortingStrategy = iota
	// SortByDensityWeightDesc orders hits by decreasing density weight.
	SortByDensityWeightDesc
)

// ClusterFormationStrategy selects when a same-layer "best hit"
// assignment is committed (§4.D.2.e).
type ClusterFormationStrategy int

const (
	// FormationImmediate commits each hit to its cluster as it is seen.
	FormationImmediate ClusterFormationStrategy = iota
	// FormationBatched defers all same-layer assignments until the pass ends.
	FormationBatched
)

// Recognized option names from spec §6's configuration-surface table.
// Stage ReadSettings implementations use these as ConfigHandle keys so
// that a single configuration source can drive every stage.
const (
	OptClusterSeedStrategy     = "ClusterSeedStrategy"
	OptHitSortingStrategy      = "HitSortingStrategy"
	OptClusterFormationStategy = "ClusterFormationStrategy"
	OptGenericDistanceCut      = "GenericDistanceCut"
	OptTanConeAngleFine        = "TanConeAngleFine"
	OptTanConeAngleCoarse      = "TanConeAngleCoarse"
	OptChiToAttemptReclustering = "ChiToAttemptReclustering"
	OptNMaxPasses              = "NMaxPasses"
	OptMinDaughterCaloHits     = "MinDaughterCaloHits"
	OptMinDaughterHadronicEnergy = "MinDaughterHadronicEnergy"
)
