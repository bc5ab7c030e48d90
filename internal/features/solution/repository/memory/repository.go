package memory

import (
	"context"
	"sync"
	"time"

	"gdz-miniapp-backend/internal/features/solution/repository"
)

const sweepInterval = time.Minute

type entry struct {
	content   string
	createdAt time.Time
}

// Repository — in-memory хранилище одноразовых решений, ограниченное и по
// TTL, и по числу записей: при переполнении вытесняются самые старые.
// Рассчитано на один процесс; для нескольких инстансов нужен redis-бэкенд.
type Repository struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int

	stop chan struct{}
	once sync.Once

	// подменяется в тестах
	now func() time.Time
}

func NewRepository(ttl time.Duration, maxEntries int) *Repository {
	r := &Repository{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}

	go r.sweep()

	return r
}

var _ repository.SolutionStore = (*Repository)(nil)

func (r *Repository) Put(_ context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.maxEntries {
		r.evictOldestLocked()
	}

	r.entries[id] = entry{content: content, createdAt: r.now()}
	return nil
}

func (r *Repository) Take(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	delete(r.entries, id)

	if r.now().Sub(e.createdAt) >= r.ttl {
		return "", repository.ErrNotFound
	}

	return e.content, nil
}

// Close останавливает фоновую чистку.
func (r *Repository) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *Repository) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			cutoff := r.now().Add(-r.ttl)
			for id, e := range r.entries {
				if e.createdAt.Before(cutoff) {
					delete(r.entries, id)
				}
			}
			r.mu.Unlock()
		}
	}
}

// evictOldestLocked освобождает место под новую запись. Вызывается под mu.
func (r *Repository) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, e := range r.entries {
		if oldestID == "" || e.createdAt.Before(oldestAt) {
			oldestID = id
			oldestAt = e.createdAt
		}
	}
	if oldestID != "" {
		delete(r.entries, oldestID)
	}
}
