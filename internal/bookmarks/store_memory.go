package bookmarks

import (
	"context"
	"iter"
	"slices"
	"sync"
)

type pairKey struct{ profile, opportunity string }

type MemoryStore struct {
	mu    sync.RWMutex
	saved map[pairKey]Bookmark
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{saved: make(map[pairKey]Bookmark)}
}

func (m *MemoryStore) Save(ctx context.Context, b Bookmark) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{b.ProfileID, b.OpportunityID}
	if _, ok := m.saved[k]; ok {
		return false, nil
	}
	m.saved[k] = b
	return true, nil
}

func (m *MemoryStore) Remove(ctx context.Context, profileID, opportunityID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{profileID, opportunityID}
	if _, ok := m.saved[k]; !ok {
		return false, nil
	}
	delete(m.saved, k)
	return true, nil
}

func (m *MemoryStore) Toggle(ctx context.Context, b Bookmark) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{b.ProfileID, b.OpportunityID}
	if _, ok := m.saved[k]; ok {
		delete(m.saved, k)
		return false, nil
	}
	m.saved[k] = b
	return true, nil
}

func (m *MemoryStore) Exists(ctx context.Context, profileID, opportunityID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.saved[pairKey{profileID, opportunityID}]
	return ok, nil
}

func (m *MemoryStore) Count(ctx context.Context, profileID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k := range m.saved {
		if k.profile == profileID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) List(ctx context.Context, profileID string) iter.Seq2[Bookmark, error] {
	return func(yield func(Bookmark, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Bookmark{}, err)
			return
		}
		m.mu.RLock()
		var out []Bookmark
		for k, b := range m.saved {
			if k.profile == profileID {
				out = append(out, b)
			}
		}
		m.mu.RUnlock()
		slices.SortFunc(out, compareNewestFirst)
		for _, b := range out {
			if !yield(b, nil) {
				return
			}
		}
	}
}
