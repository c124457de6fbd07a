package applications

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	apps    map[string]Application
	history map[string][]Transition
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		apps:    make(map[string]Application),
		history: make(map[string][]Transition),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, app Application, first Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.ProfileID == app.ProfileID && existing.OpportunityID == app.OpportunityID && existing.State.Live() {
			return ErrDuplicate
		}
	}
	app.History = nil
	r.apps[app.ID] = app
	r.history[app.ID] = []Transition{first}
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (r *MemoryRepo) FindLive(ctx context.Context, profileID, opportunityID string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, app := range r.apps {
		if app.ProfileID == profileID && app.OpportunityID == opportunityID && app.State.Live() {
			return app, nil
		}
	}
	return Application{}, ErrNotFound
}

func (r *MemoryRepo) Update(ctx context.Context, app Application, t Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.apps[app.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.State != t.From {
		return ErrStale
	}
	app.History = nil
	r.apps[app.ID] = app
	r.history[app.ID] = append(r.history[app.ID], t)
	return nil
}

func (r *MemoryRepo) ListByProfile(ctx context.Context, profileID string) ([]Application, error) {
	return r.list(ctx, func(a Application) bool { return a.ProfileID == profileID })
}

func (r *MemoryRepo) ListByOpportunity(ctx context.Context, opportunityID string) ([]Application, error) {
	return r.list(ctx, func(a Application) bool { return a.OpportunityID == opportunityID })
}

func (r *MemoryRepo) History(ctx context.Context, id string) ([]Transition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.apps[id]; !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(r.history[id]), nil
}

func (r *MemoryRepo) list(ctx context.Context, keep func(Application) bool) ([]Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Application
	for _, app := range r.apps {
		if keep(app) {
			out = append(out, app)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(apps []Application) {
	slices.SortFunc(apps, func(a, b Application) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
