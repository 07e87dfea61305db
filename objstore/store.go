// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package objstore

import "github.com/luxfi/pflow/log"

// Kind-scoped list-name constants. Stages reference lists by these
// names, not by pointer, per spec §3.2.
const (
	ListCurrent = "current"
)

// Store is the per-event managed-object graph and named-list state
// machine (spec §3/§4.B). One Store backs one event; it is never shared
// across engine instances, matching spec §5's "thread-local to one
// engine instance" scheduling model.
type Store struct {
	log log.Logger

	hits        Arena[CaloHit]
	tracks      Arena[Track]
	mcParticles Arena[MCParticle]
	clusters    Arena[Cluster]
	pfos        Arena[ParticleFlowObject]

	HitLists     *NamedListSet[Handle[CaloHit]]
	ClusterLists *NamedListSet[Handle[Cluster]]
	TrackLists   *NamedListSet[Handle[Track]]
	PFOLists     *NamedListSet[Handle[ParticleFlowObject]]

	// hitOwner tracks which cluster currently owns a hit in its primary
	// (non-isolated) list, enforcing spec §3.1's "a hit belongs to at
	// most one cluster's primary list at a time" invariant in O(1).
	hitOwner map[Handle[CaloHit]]Handle[Cluster]
}

// New returns an empty Store.
func New(logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNoOp()
	}
	return &Store{
		log:          logger,
		HitLists:     NewNamedListSet[Handle[CaloHit]](),
		ClusterLists: NewNamedListSet[Handle[Cluster]](),
		TrackLists:   NewNamedListSet[Handle[Track]](),
		PFOLists:     NewNamedListSet[Handle[ParticleFlowObject]](),
		hitOwner:     make(map[Handle[CaloHit]]Handle[Cluster]),
	}
}

// CreateHit allocates a new CaloHit. Hits are created once per event by
// the input adapter and never destroyed until event teardown (spec §3.3).
func (s *Store) CreateHit(h CaloHit) Handle[CaloHit] {
	return s.hits.Alloc(h)
}

// Hit resolves a hit handle.
func (s *Store) Hit(h Handle[CaloHit]) (*CaloHit, bool) { return s.hits.Get(h) }

// AllHits returns every live hit handle in creation order.
func (s *Store) AllHits() []Handle[CaloHit] { return s.hits.All() }

// CreateTrack allocates a new Track.
func (s *Store) CreateTrack(t Track) Handle[Track] {
	if t.Parents == nil {
		t.Parents = make(map[Handle[Track]]struct{})
	}
	if t.Daughters == nil {
		t.Daughters = make(map[Handle[Track]]struct{})
	}
	if t.Siblings == nil {
		t.Siblings = make(map[Handle[Track]]struct{})
	}
	return s.tracks.Alloc(t)
}

// Track resolves a track handle.
func (s *Store) Track(h Handle[Track]) (*Track, bool) { return s.tracks.Get(h) }

// AllTracks returns every live track handle in creation order.
func (s *Store) AllTracks() []Handle[Track] { return s.tracks.All() }

// LinkTrackParentDaughter records t as a daughter of parent and parent
// as a parent of t. Tracks are linked once, by the input adapter, before
// any stage runs, so the acyclic invariant (spec §3.1) is an input
// contract rather than something the store enforces at runtime.
func (s *Store) LinkTrackParentDaughter(parent, daughter Handle[Track]) {
	if p, ok := s.tracks.Get(parent); ok {
		p.Daughters.Add(daughter)
	}
	if d, ok := s.tracks.Get(daughter); ok {
		d.Parents.Add(parent)
	}
}

// LinkTrackSiblings records a and b as siblings of each other.
func (s *Store) LinkTrackSiblings(a, b Handle[Track]) {
	if ta, ok := s.tracks.Get(a); ok {
		ta.Siblings.Add(b)
	}
	if tb, ok := s.tracks.Get(b); ok {
		tb.Siblings.Add(a)
	}
}

// CreateMCParticle allocates a new MCParticle.
func (s *Store) CreateMCParticle(p MCParticle) Handle[MCParticle] {
	if p.Parents == nil {
		p.Parents = make(map[Handle[MCParticle]]struct{})
	}
	if p.Daughters == nil {
		p.Daughters = make(map[Handle[MCParticle]]struct{})
	}
	return s.mcParticles.Alloc(p)
}

// MCParticle resolves an MC-particle handle.
func (s *Store) MCParticle(h Handle[MCParticle]) (*MCParticle, bool) {
	return s.mcParticles.Get(h)
}

// Cluster resolves a cluster handle.
func (s *Store) Cluster(h Handle[Cluster]) (*Cluster, bool) { return s.clusters.Get(h) }

// AllClusters returns every live cluster handle in slot-index order.
func (s *Store) AllClusters() []Handle[Cluster] { return s.clusters.All() }

// PFO resolves a PFO handle.
func (s *Store) PFO(h Handle[ParticleFlowObject]) (*ParticleFlowObject, bool) {
	return s.pfos.Get(h)
}

// AllPFOs returns every live PFO handle in slot-index order.
func (s *Store) AllPFOs() []Handle[ParticleFlowObject] { return s.pfos.All() }

// Snapshot captures the entire store's mutable state: every arena and
// every named-list set. Used by the pipeline driver (spec §7) and the
// reclustering driver (spec §4.G) to roll back a failed or rejected
// stage/candidate in one shot.
type Snapshot struct {
	hits        arenaSnapshot[CaloHit]
	tracks      arenaSnapshot[Track]
	mcParticles arenaSnapshot[MCParticle]
	clusters    arenaSnapshot[Cluster]
	pfos        arenaSnapshot[ParticleFlowObject]

	hitLists     namedListSnapshot[Handle[CaloHit]]
	clusterLists namedListSnapshot[Handle[Cluster]]
	trackLists   namedListSnapshot[Handle[Track]]
	pfoLists     namedListSnapshot[Handle[ParticleFlowObject]]

	hitOwner map[Handle[CaloHit]]Handle[Cluster]
}

// Snapshot captures the store's current state. Clusters and PFOs hold
// their hit lists and handle sets by reference, so those are copied too.
func (s *Store) Snapshot() Snapshot {
	clusters := s.clusters.snapshot()
	for i := range clusters.slots {
		if c := &clusters.slots[i].value; clusters.slots[i].alive {
			c.Primary = c.Primary.Union(NewOrderedCaloHitList())
			c.Isolated = c.Isolated.Union(NewOrderedCaloHitList())
			c.Tracks = c.Tracks.Clone()
		}
	}
	pfos := s.pfos.snapshot()
	for i := range pfos.slots {
		if p := &pfos.slots[i].value; pfos.slots[i].alive {
			p.Clusters, p.Tracks = p.Clusters.Clone(), p.Tracks.Clone()
		}
	}
	return Snapshot{
		hits:         s.hits.snapshot(),
		tracks:       s.tracks.snapshot(),
		mcParticles:  s.mcParticles.snapshot(),
		clusters:     clusters,
		pfos:         pfos,
		hitLists:     s.HitLists.snapshot(),
		clusterLists: s.ClusterLists.snapshot(),
		trackLists:   s.TrackLists.snapshot(),
		pfoLists:     s.PFOLists.snapshot(),
		hitOwner:     cloneHitOwner(s.hitOwner),
	}
}

func cloneHitOwner(m map[Handle[CaloHit]]Handle[Cluster]) map[Handle[CaloHit]]Handle[Cluster] {
	out := make(map[Handle[CaloHit]]Handle[Cluster], len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Restore replaces the store's current state with a prior Snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.hits.restore(snap.hits)
	s.tracks.restore(snap.tracks)
	s.mcParticles.restore(snap.mcParticles)
	s.clusters.restore(snap.clusters)
	s.pfos.restore(snap.pfos)
	s.HitLists.restore(snap.hitLists)
	s.ClusterLists.restore(snap.clusterLists)
	s.TrackLists.restore(snap.trackLists)
	s.PFOLists.restore(snap.pfoLists)
	s.hitOwner = cloneHitOwner(snap.hitOwner)
}
