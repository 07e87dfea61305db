// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import (
	"github.com/luxfi/pflow/errs"
)

// CreateClusterFromHit creates a new, unseeded cluster containing hit
// and adds it to the current cluster list (spec §4.B createCluster).
func (s *Store) CreateClusterFromHit(hit Handle[CaloHit]) (Handle[Cluster], error) {
	h, err := s.createEmptyCluster()
	if err != nil {
		return Handle[Cluster]{}, err
	}
	if err := s.AddHitToCluster(h, hit); err != nil {
		s.clusters.Free(h)
		return Handle[Cluster]{}, err
	}
	return h, nil
}

// CreateClusterFromHits creates a new cluster seeded with every hit in hits.
func (s *Store) CreateClusterFromHits(hits []Handle[CaloHit]) (Handle[Cluster], error) {
	h, err := s.createEmptyCluster()
	if err != nil {
		return Handle[Cluster]{}, err
	}
	for _, hit := range hits {
		if err := s.AddHitToCluster(h, hit); err != nil {
			s.clusters.Free(h)
			return Handle[Cluster]{}, err
		}
	}
	return h, nil
}

// CreateClusterFromTrack creates an empty, track-seeded cluster bound to
// track (cone clustering's seeding step, spec §4.D.1).
func (s *Store) CreateClusterFromTrack(track Handle[Track]) (Handle[Cluster], error) {
	t, ok := s.tracks.Get(track)
	if !ok {
		return Handle[Cluster]{}, errs.New(errs.OutOfRange, "createClusterFromTrack: unknown track")
	}
	h, err := s.createEmptyCluster()
	if err != nil {
		return Handle[Cluster]{}, err
	}
	c := s.clusters.MustGet(h)
	c.IsTrackSeeded = true
	c.InitialDirection = t.AtECal.Momentum
	c.Tracks.Add(track)
	t.associatedCluster = h
	return h, nil
}

func (s *Store) createEmptyCluster() (Handle[Cluster], error) {
	h := s.clusters.Alloc(Cluster{
		Primary:  NewOrderedCaloHitList(),
		Isolated: NewOrderedCaloHitList(),
		Tracks:   map[Handle[Track]]struct{}{},
	})
	if err := s.appendCurrentClusterList(h); err != nil {
		s.clusters.Free(h)
		return Handle[Cluster]{}, err
	}
	return h, nil
}

func (s *Store) appendCurrentClusterList(h Handle[Cluster]) error {
	name := s.ClusterLists.CurrentName()
	if name == "" {
		name = "clusters"
		if err := s.ClusterLists.ReplaceCurrentOrCreate(name); err != nil {
			return err
		}
	}
	return s.ClusterLists.Save(name, []Handle[Cluster]{h}, AppendIfExists)
}

// ReplaceCurrentOrCreate designates name as current, creating it empty
// first if it does not yet exist. Used for the implicit default list a
// fresh Store starts stages against.
func (n *NamedListSet[T]) ReplaceCurrentOrCreate(name string) error {
	if _, ok := n.lists[name]; !ok {
		if err := n.Save(name, nil, AppendIfExists); err != nil {
			return err
		}
	}
	return n.ReplaceCurrent(name)
}

// AddHitToCluster adds hit to cluster's primary list. Fails with
// ClusterHitOverlap if the hit already belongs to another cluster's
// primary list (spec §4.B).
func (s *Store) AddHitToCluster(cluster Handle[Cluster], hit Handle[CaloHit]) error {
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "addHitToCluster: unknown cluster")
	}
	ch, ok := s.hits.Get(hit)
	if !ok {
		return errs.New(errs.OutOfRange, "addHitToCluster: unknown hit")
	}
	if owner, owned := s.hitOwner[hit]; owned && owner != cluster {
		return errs.New(errs.ClusterHitOverlap, "hit already owned by another cluster")
	}
	c.Primary.Add(ch.PseudoLayer, hit)
	s.hitOwner[hit] = cluster
	c.Invalidate()
	return nil
}

// RemoveHitFromCluster removes hit from cluster's primary list.
func (s *Store) RemoveHitFromCluster(cluster Handle[Cluster], hit Handle[CaloHit]) error {
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "removeHitFromCluster: unknown cluster")
	}
	ch, ok := s.hits.Get(hit)
	if !ok {
		return errs.New(errs.OutOfRange, "removeHitFromCluster: unknown hit")
	}
	c.Primary.Remove(ch.PseudoLayer, hit)
	if s.hitOwner[hit] == cluster {
		delete(s.hitOwner, hit)
	}
	c.Invalidate()
	return nil
}

// AddIsolatedHitToCluster adds hit to cluster's isolated-hit list.
// Isolated hits are not subject to the primary-list overlap invariant.
func (s *Store) AddIsolatedHitToCluster(cluster Handle[Cluster], hit Handle[CaloHit]) error {
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "addIsolatedHitToCluster: unknown cluster")
	}
	ch, ok := s.hits.Get(hit)
	if !ok {
		return errs.New(errs.OutOfRange, "addIsolatedHitToCluster: unknown hit")
	}
	c.Isolated.Add(ch.PseudoLayer, hit)
	c.Invalidate()
	return nil
}

// RemoveIsolatedHitFromCluster removes hit from cluster's isolated-hit list.
func (s *Store) RemoveIsolatedHitFromCluster(cluster Handle[Cluster], hit Handle[CaloHit]) error {
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "removeIsolatedHitFromCluster: unknown cluster")
	}
	ch, ok := s.hits.Get(hit)
	if !ok {
		return errs.New(errs.OutOfRange, "removeIsolatedHitFromCluster: unknown hit")
	}
	c.Isolated.Remove(ch.PseudoLayer, hit)
	c.Invalidate()
	return nil
}

// MergeAndDelete merges donor into recipient: recipient acquires all of
// donor's primary hits, isolated hits, and associated tracks; donor is
// removed from every named list and freed. Every track that pointed to
// donor is re-pointed to recipient (spec §4.B mergeAndDelete).
func (s *Store) MergeAndDelete(recipient, donor Handle[Cluster]) error {
	if recipient == donor {
		return errs.New(errs.InvalidParameter, "mergeAndDelete: recipient and donor are the same cluster")
	}
	r, ok := s.clusters.Get(recipient)
	if !ok {
		return errs.New(errs.OutOfRange, "mergeAndDelete: unknown recipient")
	}
	d, ok := s.clusters.Get(donor)
	if !ok {
		return errs.New(errs.OutOfRange, "mergeAndDelete: unknown donor")
	}

	for _, layer := range d.Primary.Layers() {
		for _, hit := range d.Primary.InLayer(layer, nil) {
			r.Primary.Add(layer, hit)
			s.hitOwner[hit] = recipient
		}
	}
	for _, layer := range d.Isolated.Layers() {
		for _, hit := range d.Isolated.InLayer(layer, nil) {
			r.Isolated.Add(layer, hit)
		}
	}
	for track := range d.Tracks {
		r.Tracks.Add(track)
		if t, ok := s.tracks.Get(track); ok {
			t.associatedCluster = recipient
		}
	}

	r.Invalidate()
	s.removeClusterFromAllLists(donor)
	s.clusters.Free(donor)
	return nil
}

// DeleteCluster removes cluster from listName (or every list if
// listName is empty) and frees it; any associated tracks lose their
// association (spec §4.B deleteCluster).
func (s *Store) DeleteCluster(cluster Handle[Cluster], listName string) error {
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "deleteCluster: unknown cluster")
	}
	for track := range c.Tracks {
		if t, ok := s.tracks.Get(track); ok {
			t.associatedCluster = Handle[Cluster]{}
		}
	}
	for _, layer := range c.Primary.Layers() {
		for _, hit := range c.Primary.InLayer(layer, nil) {
			if s.hitOwner[hit] == cluster {
				delete(s.hitOwner, hit)
			}
		}
	}
	if listName != "" {
		s.removeClusterFromList(listName, cluster)
	} else {
		s.removeClusterFromAllLists(cluster)
	}
	s.clusters.Free(cluster)
	return nil
}

func (s *Store) removeClusterFromAllLists(cluster Handle[Cluster]) {
	for _, name := range s.ClusterLists.Names() {
		s.removeClusterFromList(name, cluster)
	}
}

func (s *Store) removeClusterFromList(name string, cluster Handle[Cluster]) {
	items, ok := s.ClusterLists.Get(name)
	if !ok {
		return
	}
	out := items[:0:0]
	for _, h := range items {
		if h != cluster {
			out = append(out, h)
		}
	}
	s.ClusterLists.lists[name] = out
}

// AssociateTrackCluster associates track with cluster, replacing any
// prior association on either side (spec §4.F).
func (s *Store) AssociateTrackCluster(track Handle[Track], cluster Handle[Cluster]) error {
	t, ok := s.tracks.Get(track)
	if !ok {
		return errs.New(errs.OutOfRange, "associateTrackCluster: unknown track")
	}
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "associateTrackCluster: unknown cluster")
	}
	if old, has := t.AssociatedCluster(); has && old != cluster {
		if oc, ok := s.clusters.Get(old); ok {
			oc.Tracks.Remove(track)
		}
	}
	t.associatedCluster = cluster
	c.Tracks.Add(track)
	return nil
}

// RemoveTrackClusterAssociation removes the association between track
// and cluster, if it exists.
func (s *Store) RemoveTrackClusterAssociation(track Handle[Track], cluster Handle[Cluster]) error {
	t, ok := s.tracks.Get(track)
	if !ok {
		return errs.New(errs.OutOfRange, "removeTrackClusterAssociation: unknown track")
	}
	c, ok := s.clusters.Get(cluster)
	if !ok {
		return errs.New(errs.OutOfRange, "removeTrackClusterAssociation: unknown cluster")
	}
	if t.associatedCluster == cluster {
		t.associatedCluster = Handle[Cluster]{}
	}
	c.Tracks.Remove(track)
	return nil
}

// RemoveCurrentTrackClusterAssociation removes track's current
// association, wherever it points.
func (s *Store) RemoveCurrentTrackClusterAssociation(track Handle[Track]) error {
	t, ok := s.tracks.Get(track)
	if !ok {
		return errs.New(errs.OutOfRange, "removeCurrentTrackClusterAssociation: unknown track")
	}
	cluster, has := t.AssociatedCluster()
	if !has {
		return nil
	}
	return s.RemoveTrackClusterAssociation(track, cluster)
}

// RemoveAllTrackClusterAssociations clears every track-cluster
// association store-wide. No stage in this module calls it; the
// reclustering driver undoes a rejected candidate with Store.Restore.
func (s *Store) RemoveAllTrackClusterAssociations() {
	for _, th := range s.tracks.All() {
		t := s.tracks.MustGet(th)
		if t.associatedCluster.IsZero() {
			continue
		}
		if c, ok := s.clusters.Get(t.associatedCluster); ok {
			c.Tracks.Remove(th)
		}
		t.associatedCluster = Handle[Cluster]{}
	}
}

// CreatePFO creates a new PFO and adds it to the current PFO list.
func (s *Store) CreatePFO(p ParticleFlowObject) (Handle[ParticleFlowObject], error) {
	if p.Clusters == nil {
		p.Clusters = map[Handle[Cluster]]struct{}{}
	}
	if p.Tracks == nil {
		p.Tracks = map[Handle[Track]]struct{}{}
	}
	h := s.pfos.Alloc(p)
	name := s.PFOLists.CurrentName()
	if name == "" {
		name = "pfos"
		if err := s.PFOLists.ReplaceCurrentOrCreate(name); err != nil {
			s.pfos.Free(h)
			return Handle[ParticleFlowObject]{}, err
		}
	}
	if err := s.PFOLists.Save(name, []Handle[ParticleFlowObject]{h}, AppendIfExists); err != nil {
		s.pfos.Free(h)
		return Handle[ParticleFlowObject]{}, err
	}
	return h, nil
}

// DeletePFO removes pfo from every named list and frees it.
func (s *Store) DeletePFO(pfo Handle[ParticleFlowObject]) error {
	if _, ok := s.pfos.Get(pfo); !ok {
		return errs.New(errs.OutOfRange, "deletePFO: unknown pfo")
	}
	for _, name := range s.PFOLists.Names() {
		items, ok := s.PFOLists.Get(name)
		if !ok {
			continue
		}
		out := items[:0:0]
		for _, h := range items {
			if h != pfo {
				out = append(out, h)
			}
		}
		s.PFOLists.lists[name] = out
	}
	s.pfos.Free(pfo)
	return nil
}

// AddClusterToPFO adds cluster as a constituent of pfo.
func (s *Store) AddClusterToPFO(pfo Handle[ParticleFlowObject], cluster Handle[Cluster]) error {
	p, ok := s.pfos.Get(pfo)
	if !ok {
		return errs.New(errs.OutOfRange, "addClusterToPFO: unknown pfo")
	}
	if _, ok := s.clusters.Get(cluster); !ok {
		return errs.New(errs.OutOfRange, "addClusterToPFO: unknown cluster")
	}
	p.Clusters.Add(cluster)
	return nil
}

// RemoveClusterFromPFO removes cluster from pfo's constituents.
func (s *Store) RemoveClusterFromPFO(pfo Handle[ParticleFlowObject], cluster Handle[Cluster]) error {
	p, ok := s.pfos.Get(pfo)
	if !ok {
		return errs.New(errs.OutOfRange, "removeClusterFromPFO: unknown pfo")
	}
	p.Clusters.Remove(cluster)
	return nil
}

// AddTrackToPFO adds track as a constituent of pfo.
func (s *Store) AddTrackToPFO(pfo Handle[ParticleFlowObject], track Handle[Track]) error {
	p, ok := s.pfos.Get(pfo)
	if !ok {
		return errs.New(errs.OutOfRange, "addTrackToPFO: unknown pfo")
	}
	if _, ok := s.tracks.Get(track); !ok {
		return errs.New(errs.OutOfRange, "addTrackToPFO: unknown track")
	}
	p.Tracks.Add(track)
	return nil
}

// RemoveTrackFromPFO removes track from pfo's constituents.
func (s *Store) RemoveTrackFromPFO(pfo Handle[ParticleFlowObject], track Handle[Track]) error {
	p, ok := s.pfos.Get(pfo)
	if !ok {
		return errs.New(errs.OutOfRange, "removeTrackFromPFO: unknown pfo")
	}
	p.Tracks.Remove(track)
	return nil
}

// HitOwner returns the cluster that currently owns hit in its primary
// list, and whether it has an owner.
func (s *Store) HitOwner(hit Handle[CaloHit]) (Handle[Cluster], bool) {
	c, ok := s.hitOwner[hit]
	return c, ok
}
