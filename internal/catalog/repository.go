package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository persists providers and procedures.
type Repository interface {
	ListActiveProviders(ctx context.Context) ([]Provider, error)
	GetProvider(ctx context.Context, id int64) (*Provider, error)
	ListActiveProcedures(ctx context.Context, providerID int64) ([]Procedure, error)
	GetProcedure(ctx context.Context, id int64) (*Procedure, error)
	CreateProvider(ctx context.Context, p *Provider) error
	CreateProcedure(ctx context.Context, p *Procedure) error
	DeactivateProvider(ctx context.Context, id int64) error
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu         sync.RWMutex
	providerID int64
	procID     int64
	providers  map[int64]Provider
	procedures map[int64]Procedure
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		providers:  make(map[int64]Provider),
		procedures: make(map[int64]Procedure),
	}
}

func (r *MemoryRepository) ListActiveProviders(context.Context) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Active {
			out = append(out, cloneProvider(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetProvider(_ context.Context, id int64) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneProvider(p)
	return &c, nil
}

func (r *MemoryRepository) ListActiveProcedures(_ context.Context, providerID int64) ([]Procedure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Procedure{}
	for _, p := range r.procedures {
		if p.ProviderID == providerID && p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetProcedure(_ context.Context, id int64) (*Procedure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.procedures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) CreateProvider(_ context.Context, p *Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providerID++
	p.ID = r.providerID
	r.providers[p.ID] = cloneProvider(*p)
	return nil
}

func (r *MemoryRepository) CreateProcedure(_ context.Context, p *Procedure) error {
	if p.DurationMinutes <= 0 {
		return fmt.Errorf("catalog: procedure duration must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.ProviderID]; !ok {
		return ErrNotFound
	}
	for _, existing := range r.procedures {
		if existing.ProviderID == p.ProviderID && existing.Code == p.Code {
			return fmt.Errorf("catalog: procedure code %q already used by provider %d", p.Code, p.ProviderID)
		}
	}
	r.procID++
	p.ID = r.procID
	r.procedures[p.ID] = *p
	return nil
}

func (r *MemoryRepository) DeactivateProvider(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	r.providers[id] = p
	for pid, proc := range r.procedures {
		if proc.ProviderID == id {
			proc.Active = false
			r.procedures[pid] = proc
		}
	}
	return nil
}

func cloneProvider(p Provider) Provider {
	p.WorkingDays = append([]string(nil), p.WorkingDays...)
	return p
}
