package appointments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ConflictFunc inspects the confirmed appointments already on the target
// provider-day and reports whether the new one would collide.
type ConflictFunc func(existing []Appointment) bool

// Repository persists appointments. Insert must run the conflict check and
// the write under one provider-day lock.
type Repository interface {
	Insert(ctx context.Context, a *Appointment, conflicts ConflictFunc) error
	Get(ctx context.Context, id int64) (*Appointment, error)
	ListByProvider(ctx context.Context, providerID int64) ([]Appointment, error)
	ConfirmedOn(ctx context.Context, providerID int64, date time.Time) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id int64, from []Status, to Status) error
	CountByProvider(ctx context.Context) (map[int64]StatusCounts, error)
}

func dayKey(providerID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", providerID, date.Format("2006-01-02"))
}

// MemoryRepository is an in-process Repository with provider-day locking.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]Appointment
	codes  map[string]int64
	now    func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows:  make(map[int64]Appointment),
		codes: make(map[string]int64),
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (r *MemoryRepository) dayLock(key string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

func (r *MemoryRepository) Insert(ctx context.Context, a *Appointment, conflicts ConflictFunc) error {
	lock := r.dayLock(dayKey(a.ProviderID, a.Date))
	lock.Lock()
	defer lock.Unlock()

	existing, err := r.ConfirmedOn(ctx, a.ProviderID, a.Date)
	if err != nil {
		return err
	}
	if conflicts != nil && conflicts(existing) {
		return ErrSlotTaken
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.codes[a.Code]; dup {
		return fmt.Errorf("appointments: duplicate code %s", a.Code)
	}
	r.nextID++
	now := r.now()
	a.ID = r.nextID
	a.CreatedAt, a.UpdatedAt = now, now
	r.rows[a.ID] = *a
	r.codes[a.Code] = a.ID
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListByProvider(_ context.Context, providerID int64) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Appointment{}
	for _, a := range r.rows {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sortChronological(out)
	return out, nil
}

func (r *MemoryRepository) ConfirmedOn(_ context.Context, providerID int64, date time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := dayKey(providerID, date)
	out := []Appointment{}
	for _, a := range r.rows {
		if a.Status == StatusConfirmed && dayKey(a.ProviderID, a.Date) == key {
			out = append(out, a)
		}
	}
	sortChronological(out)
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from []Status, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	if len(from) > 0 && !containsStatus(from, a.Status) {
		return ErrNotConfirmed
	}
	a.Status = to
	a.UpdatedAt = r.now()
	r.rows[id] = a
	return nil
}

func (r *MemoryRepository) CountByProvider(context.Context) (map[int64]StatusCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]StatusCounts)
	for _, a := range r.rows {
		c := out[a.ProviderID]
		switch a.Status {
		case StatusConfirmed:
			c.Confirmed++
		case StatusCancelled:
			c.Cancelled++
		case StatusCompleted:
			c.Completed++
		}
		out[a.ProviderID] = c
	}
	return out, nil
}

func containsStatus(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func sortChronological(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		if list[i].StartTime != list[j].StartTime {
			return list[i].StartTime < list[j].StartTime
		}
		return list[i].ID < list[j].ID
	})
}
