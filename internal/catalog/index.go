package catalog

import (
	"iter"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable view of the catalog. Opportunities yielded from it
// share slices with the snapshot and must be treated as read-only.
type Snapshot struct {
	byID       map[string]*Opportunity
	bySector   map[string][]*Opportunity
	byLocation map[string][]*Opportunity
	version    uint64
}

var emptySnapshot = &Snapshot{
	byID:       map[string]*Opportunity{},
	bySector:   map[string][]*Opportunity{},
	byLocation: map[string][]*Opportunity{},
}

// Index holds the authoritative opportunity set. Writers serialize on mu and
// publish a fresh Snapshot; readers load the pointer and never block.
type Index struct {
	mu    sync.Mutex
	snap  atomic.Pointer[Snapshot]
	ready atomic.Bool
}

func NewIndex() *Index {
	x := &Index{}
	x.snap.Store(emptySnapshot)
	return x
}

// Snapshot returns the current immutable view.
func (x *Index) Snapshot() *Snapshot {
	return x.snap.Load()
}

// Upsert inserts or replaces o. Opportunities that break a catalog invariant
// are rejected with an invalid_opportunity error and the index is unchanged.
func (x *Index) Upsert(o Opportunity) error {
	if err := o.check(); err != nil {
		return err
	}
	stored := o.clone()

	x.mu.Lock()
	defer x.mu.Unlock()
	cur := x.snap.Load()
	next := make(map[string]*Opportunity, len(cur.byID)+1)
	for id, existing := range cur.byID {
		next[id] = existing
	}
	next[stored.ID] = &stored
	x.snap.Store(buildSnapshot(next, cur.version+1))
	return nil
}

// Replace swaps the whole catalog for opps. Entries that fail validation are
// skipped and returned; the rest are published in one snapshot.
func (x *Index) Replace(opps []Opportunity) []error {
	var rejected []error
	next := make(map[string]*Opportunity, len(opps))
	for i := range opps {
		if err := opps[i].check(); err != nil {
			rejected = append(rejected, err)
			continue
		}
		o := opps[i].clone()
		next[o.ID] = &o
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.snap.Store(buildSnapshot(next, x.snap.Load().version+1))
	return rejected
}

// Get returns any stored opportunity regardless of status.
func (x *Index) Get(id string) (Opportunity, bool) {
	return x.Snapshot().Get(id)
}

// ActiveOpportunities yields open entries with openings left and a deadline
// not before asOf. The sequence is bound to the snapshot current at the call
// and may be ranged over repeatedly. Order is unspecified.
func (x *Index) ActiveOpportunities(asOf time.Time) iter.Seq[Opportunity] {
	return x.Snapshot().Active(asOf)
}

// ActiveFiltered is ActiveOpportunities narrowed by sector and/or location.
func (x *Index) ActiveFiltered(asOf time.Time, f Filter) iter.Seq[Opportunity] {
	return x.Snapshot().ActiveFiltered(asOf, f)
}

// MarkReady records that the catalog finished its first load.
func (x *Index) MarkReady() {
	x.ready.Store(true)
}

// Ready reports whether the catalog has been loaded at least once.
func (x *Index) Ready() bool {
	return x.ready.Load()
}

func buildSnapshot(byID map[string]*Opportunity, version uint64) *Snapshot {
	s := &Snapshot{
		byID:       byID,
		bySector:   make(map[string][]*Opportunity),
		byLocation: make(map[string][]*Opportunity),
		version:    version,
	}
	for _, o := range byID {
		s.bySector[o.Sector] = append(s.bySector[o.Sector], o)
		s.byLocation[o.LocationKey] = append(s.byLocation[o.LocationKey], o)
	}
	return s
}

// Version increases with every published write.
func (s *Snapshot) Version() uint64 { return s.version }

// Len counts every stored entry, active or not.
func (s *Snapshot) Len() int { return len(s.byID) }

func (s *Snapshot) Get(id string) (Opportunity, bool) {
	o, ok := s.byID[id]
	if !ok {
		return Opportunity{}, false
	}
	return *o, true
}

// All yields every entry ordered by id.
func (s *Snapshot) All() iter.Seq[Opportunity] {
	return func(yield func(Opportunity) bool) {
		ids := make([]string, 0, len(s.byID))
		for id := range s.byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if !yield(*s.byID[id]) {
				return
			}
		}
	}
}

func (s *Snapshot) Active(asOf time.Time) iter.Seq[Opportunity] {
	return func(yield func(Opportunity) bool) {
		for _, o := range s.byID {
			if o.ActiveAt(asOf) && !yield(*o) {
				return
			}
		}
	}
}

func (s *Snapshot) ActiveFiltered(asOf time.Time, f Filter) iter.Seq[Opportunity] {
	if f.Sector == "" && f.Location == "" {
		return s.Active(asOf)
	}
	return func(yield func(Opportunity) bool) {
		var candidates []*Opportunity
		switch {
		case f.Sector != "" && f.Location != "":
			bySector, byLoc := s.bySector[f.Sector], s.byLocation[f.Location]
			candidates = bySector
			if len(byLoc) < len(bySector) {
				candidates = byLoc
			}
		case f.Sector != "":
			candidates = s.bySector[f.Sector]
		default:
			candidates = s.byLocation[f.Location]
		}
		for _, o := range candidates {
			if f.Sector != "" && o.Sector != f.Sector {
				continue
			}
			if f.Location != "" && o.LocationKey != f.Location {
				continue
			}
			if o.ActiveAt(asOf) && !yield(*o) {
				return
			}
		}
	}
}
