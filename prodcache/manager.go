package prodcache

import (
	"context"
	"log"
	"sync"
	"time"

	"parttracker/tracking"
)

// Cache is the key-value backend holding computed progress.
type Cache interface {
	GetProduct(ctx context.Context, product string) (*tracking.ProductProgress, error)
	SetProduct(ctx context.Context, pp tracking.ProductProgress, ttl time.Duration) error
	GetDashboard(ctx context.Context) ([]tracking.ProductProgress, bool, error)
	SetDashboard(ctx context.Context, list []tracking.ProductProgress, ttl time.Duration) error
	RemoveProduct(ctx context.Context, product string) error
	FlushAll(ctx context.Context) error
}

// Source computes progress from the database.
type Source interface {
	ProductProgress(ctx context.Context, designation string) (tracking.ProductProgress, error)
	ListProductProgress(ctx context.Context) ([]tracking.ProductProgress, error)
}

// Manager serves product progress read-through: cache first, then SQL, then
// refresh the cache. Cache failures are logged and never fail a read.
//
// Every invalidation bumps gen. A reader only refills the cache when no
// invalidation happened since it started reading SQL, so a snapshot taken
// before a commit is never stored after that commit's invalidation.
type Manager struct {
	src   Source
	cache Cache
	ttl   time.Duration

	mu  sync.Mutex
	gen uint64
}

// NewManager wires a cache in front of src. A nil cache disables caching.
func NewManager(src Source, cache Cache, ttl time.Duration) *Manager {
	return &Manager{src: src, cache: cache, ttl: ttl}
}

func (m *Manager) ProductProgress(ctx context.Context, product string) (tracking.ProductProgress, error) {
	if m.cache != nil {
		pp, err := m.cache.GetProduct(ctx, product)
		if err == nil && pp != nil {
			return *pp, nil
		}
		if err != nil {
			log.Printf("prodcache: get %s: %v", product, err)
		}
	}
	gen := m.generation()
	pp, err := m.src.ProductProgress(ctx, product)
	if err != nil {
		return pp, err
	}
	m.refill(gen, "set "+product, func() error {
		return m.cache.SetProduct(ctx, pp, m.ttl)
	})
	return pp, nil
}

func (m *Manager) ListProductProgress(ctx context.Context) ([]tracking.ProductProgress, error) {
	if m.cache != nil {
		list, ok, err := m.cache.GetDashboard(ctx)
		if err == nil && ok {
			return list, nil
		}
		if err != nil {
			log.Printf("prodcache: get dashboard: %v", err)
		}
	}
	gen := m.generation()
	list, err := m.src.ListProductProgress(ctx)
	if err != nil {
		return nil, err
	}
	m.refill(gen, "set dashboard", func() error {
		return m.cache.SetDashboard(ctx, list, m.ttl)
	})
	return list, nil
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// refill stores a freshly computed value unless an invalidation ran after gen
// was read.
func (m *Manager) refill(gen uint64, op string, set func() error) {
	if m.cache == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	if err := set(); err != nil {
		log.Printf("prodcache: %s: %v", op, err)
	}
}

// Invalidate drops cached progress of the given products and the dashboard.
func (m *Manager) Invalidate(products ...string) {
	if m.cache == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	ctx := context.Background()
	for _, p := range products {
		if err := m.cache.RemoveProduct(ctx, p); err != nil {
			log.Printf("prodcache: invalidate %s: %v", p, err)
		}
	}
}

// Flush drops every cached entry. Route edits affect all products.
func (m *Manager) Flush() {
	if m.cache == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if err := m.cache.FlushAll(context.Background()); err != nil {
		log.Printf("prodcache: flush: %v", err)
	}
}
