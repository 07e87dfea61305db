// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pflow/errs"
)

func newTestHit(s *Store, layer uint32, energy float64) Handle[CaloHit] {
	return s.CreateHit(CaloHit{
		OriginatingHitAddress: uuid.New(),
		PseudoLayer:           layer,
		EnergyInput:           energy,
		Type:                  HitECAL,
	})
}

func TestAddHitToClusterOverlap(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 1.0)

	c1, err := s.CreateClusterFromHit(h1)
	require.NoError(err)

	c2, err := s.CreateClusterFromHits(nil)
	require.NoError(err)

	err = s.AddHitToCluster(c2, h1)
	require.Error(err)
	require.True(errs.Is(err, errs.ClusterHitOverlap))

	owner, ok := s.HitOwner(h1)
	require.True(ok)
	require.Equal(c1, owner)
}

func TestMergeAndDeleteEmptyDonorIsNoOp(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 2.0)
	recipient, err := s.CreateClusterFromHit(h1)
	require.NoError(err)

	donor, err := s.CreateClusterFromHits(nil)
	require.NoError(err)

	track := s.CreateTrack(Track{})
	require.NoError(s.AssociateTrackCluster(track, donor))

	require.NoError(s.MergeAndDelete(recipient, donor))

	r, ok := s.Cluster(recipient)
	require.True(ok)
	require.Equal(1, r.NHits())
	require.True(r.Tracks.Contains(track))

	_, ok = s.Cluster(donor)
	require.False(ok)

	tr, ok := s.Track(track)
	require.True(ok)
	assoc, has := tr.AssociatedCluster()
	require.True(has)
	require.Equal(recipient, assoc)
}

func TestMergeAndDeleteTransfersHitsAndIsolated(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 1.0)
	h2 := newTestHit(s, 1, 1.0)
	h3 := newTestHit(s, 2, 1.0)

	recipient, err := s.CreateClusterFromHit(h1)
	require.NoError(err)
	donor, err := s.CreateClusterFromHit(h2)
	require.NoError(err)
	require.NoError(s.AddIsolatedHitToCluster(donor, h3))

	require.NoError(s.MergeAndDelete(recipient, donor))

	r, ok := s.Cluster(recipient)
	require.True(ok)
	require.Equal(2, r.NHits())
	require.Equal(1, r.Isolated.Len())

	owner, ok := s.HitOwner(h2)
	require.True(ok)
	require.Equal(recipient, owner)
}

func TestDeleteClusterClearsTrackAssociation(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 1.0)
	cluster, err := s.CreateClusterFromHit(h1)
	require.NoError(err)

	track := s.CreateTrack(Track{})
	require.NoError(s.AssociateTrackCluster(track, cluster))

	require.NoError(s.DeleteCluster(cluster, ""))

	tr, ok := s.Track(track)
	require.True(ok)
	_, has := tr.AssociatedCluster()
	require.False(has)
}

func TestNamedListSaveAppendsNoOverwrite(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 1.0)
	h2 := newTestHit(s, 1, 1.0)

	require.NoError(s.HitLists.Save("seed", []Handle[CaloHit]{h1}, AppendIfExists))
	require.NoError(s.HitLists.Save("seed", []Handle[CaloHit]{h2}, AppendIfExists))

	items, ok := s.HitLists.Get("seed")
	require.True(ok)
	require.Len(items, 2)

	require.Error(s.HitLists.Save("seed", []Handle[CaloHit]{h2}, FailIfExists))
}

func TestNamedListTemporarilyReplaceCurrentRoundTrips(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	require.NoError(s.ClusterLists.Save("original", nil, AppendIfExists))
	require.NoError(s.ClusterLists.ReplaceCurrent("original"))
	require.NoError(s.ClusterLists.Save("candidate", nil, AppendIfExists))

	require.NoError(s.ClusterLists.TemporarilyReplaceCurrent("candidate"))
	require.Equal("candidate", s.ClusterLists.CurrentName())

	require.NoError(s.ClusterLists.RestoreCurrent())
	require.Equal("original", s.ClusterLists.CurrentName())
}

func TestSnapshotRestoreUndoesMutation(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	h1 := newTestHit(s, 1, 1.0)
	cluster, err := s.CreateClusterFromHit(h1)
	require.NoError(err)

	snap := s.Snapshot()

	h2 := newTestHit(s, 1, 1.0)
	require.NoError(s.AddHitToCluster(cluster, h2))
	c, _ := s.Cluster(cluster)
	require.Equal(2, c.NHits())

	s.Restore(snap)

	c, ok := s.Cluster(cluster)
	require.True(ok)
	require.Equal(1, c.NHits())
	_, ok = s.HitOwner(h2)
	require.False(ok)
}

func TestOrderedCaloHitListLayerOrdering(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	l := NewOrderedCaloHitList()
	h1 := newTestHit(s, 3, 1)
	h2 := newTestHit(s, 1, 1)
	h3 := newTestHit(s, 2, 1)
	l.Add(3, h1)
	l.Add(1, h2)
	l.Add(2, h3)

	require.Equal([]uint32{1, 2, 3}, l.Layers())

	all := l.All(nil)
	require.Equal([]Handle[CaloHit]{h2, h3, h1}, all)
}
