// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapConfigHandleScalars(t *testing.T) {
	require := require.New(t)

	h := NewMapConfigHandle(map[string]string{
		OptGenericDistanceCut:  "2.5",
		OptNMaxPasses:          "4",
		OptClusterSeedStrategy: "1",
		"Flag":                 "true",
		"Names":                "a,b,c",
	}, map[string][]string{
		"ReclusterVariants": {"ConeClustering", "ConeClusteringInward"},
	})

	f, ok, err := h.GetFloat64(OptGenericDistanceCut)
	require.NoError(err)
	require.True(ok)
	require.InDelta(2.5, f, 1e-9)

	n, ok, err := h.GetUint(OptNMaxPasses)
	require.NoError(err)
	require.True(ok)
	require.Equal(uint(4), n)

	b, ok, err := h.GetBool("Flag")
	require.NoError(err)
	require.True(ok)
	require.True(b)

	names, ok := h.GetStringList("Names")
	require.True(ok)
	require.Equal([]string{"a", "b", "c"}, names)

	variants, ok := h.GetStageList("ReclusterVariants")
	require.True(ok)
	require.Equal([]string{"ConeClustering", "ConeClusteringInward"}, variants)

	_, ok, err = h.GetFloat64("Missing")
	require.NoError(err)
	require.False(ok)
}
