// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsThroughWrap(t *testing.T) {
	require := require.New(t)

	base := New(ClusterHitOverlap, "hit already owned")
	wrapped := fmt.Errorf("addHitToCluster: %w", base)

	require.True(Is(wrapped, ClusterHitOverlap))
	require.False(Is(wrapped, Failure))
	require.False(Is(nil, Failure))
}

func TestCollector(t *testing.T) {
	require := require.New(t)

	var c Collector
	require.False(c.Errored())
	require.Nil(c.Err())

	c.Add(nil)
	require.False(c.Errored())

	c.Add(New(OutOfRange, "list not found"))
	require.True(c.Errored())
	require.Equal(1, c.Len())
	require.True(c.HasKind(OutOfRange))
	require.False(c.HasKind(Failure))

	c.Add(New(Failure, "inconsistent state"))
	require.Equal(2, c.Len())
	require.Contains(c.Err().Error(), "2 errors occurred")
}
