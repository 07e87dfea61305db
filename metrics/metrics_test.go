// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestStageMetricsObserve(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	m := NewStageMetrics(reg, "cone_clustering")

	m.Observe(10*time.Millisecond, nil)
	m.Observe(5*time.Millisecond, errors.New("boom"))

	var runs dto.Metric
	require.NoError(m.Runs.Write(&runs))
	require.Equal(float64(2), runs.GetCounter().GetValue())

	var errs dto.Metric
	require.NoError(m.Errors.Write(&errs))
	require.Equal(float64(1), errs.GetCounter().GetValue())
}

func TestNewReconstructionMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconstructionMetrics(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 6)
}
