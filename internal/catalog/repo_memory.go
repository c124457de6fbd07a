package catalog

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	opps map[string]Opportunity
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{opps: make(map[string]Opportunity)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, o Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps[o.ID] = o.clone()
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return Opportunity{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.opps[id]
	if !ok {
		return Opportunity{}, ErrNotFound
	}
	return o.clone(), nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Opportunity, 0, len(r.opps))
	for _, o := range r.opps {
		out = append(out, o.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
