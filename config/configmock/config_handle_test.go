// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package configmock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/pflow/config"
)

func TestConfigHandleSatisfiesInterface(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	m := NewConfigHandle(ctrl)
	m.EXPECT().GetFloat64("GenericDistanceCut").Return(2.5, true, nil)

	var handle config.ConfigHandle = m
	v, ok, err := handle.GetFloat64("GenericDistanceCut")
	require.NoError(err)
	require.True(ok)
	require.Equal(2.5, v)
}
