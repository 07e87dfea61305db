// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBasics(t *testing.T) {
	require := require.New(t)

	s := Of(1, 2, 2, 3)
	require.Equal(3, s.Len())
	require.True(s.Contains(2))

	s.Remove(2)
	require.False(s.Contains(2))

	other := Of(3, 4)
	require.Equal(Of(1, 3, 4), s.Union(other))
	require.Equal(Of(3), s.Intersect(other))
	require.Equal(Of(1), s.Subtract(other))
}

func TestSortedIsDeterministic(t *testing.T) {
	require := require.New(t)

	type hit struct {
		layer int
		id    int
	}
	s := Of(hit{2, 1}, hit{1, 5}, hit{1, 2}, hit{2, 0})

	less := func(a, b hit) bool {
		if a.layer != b.layer {
			return a.layer < b.layer
		}
		return a.id < b.id
	}

	for i := 0; i < 5; i++ {
		got := Sorted(s, less)
		require.Equal([]hit{{1, 2}, {1, 5}, {2, 0}, {2, 1}}, got)
	}
}
