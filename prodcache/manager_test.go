package prodcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"parttracker/tracking"
)

type memCache struct {
	products  map[string]tracking.ProductProgress
	dashboard []tracking.ProductProgress
	hasDash   bool
	fail      bool
}

func newMemCache() *memCache {
	return &memCache{products: make(map[string]tracking.ProductProgress)}
}

var errDown = errors.New("redis down")

func (c *memCache) GetProduct(_ context.Context, product string) (*tracking.ProductProgress, error) {
	if c.fail {
		return nil, errDown
	}
	pp, ok := c.products[product]
	if !ok {
		return nil, nil
	}
	return &pp, nil
}

func (c *memCache) SetProduct(_ context.Context, pp tracking.ProductProgress, _ time.Duration) error {
	if c.fail {
		return errDown
	}
	c.products[pp.Product] = pp
	return nil
}

func (c *memCache) GetDashboard(context.Context) ([]tracking.ProductProgress, bool, error) {
	if c.fail {
		return nil, false, errDown
	}
	return c.dashboard, c.hasDash, nil
}

func (c *memCache) SetDashboard(_ context.Context, list []tracking.ProductProgress, _ time.Duration) error {
	if c.fail {
		return errDown
	}
	c.dashboard, c.hasDash = list, true
	return nil
}

func (c *memCache) RemoveProduct(_ context.Context, product string) error {
	delete(c.products, product)
	c.dashboard, c.hasDash = nil, false
	return nil
}

func (c *memCache) FlushAll(context.Context) error {
	c.products = make(map[string]tracking.ProductProgress)
	c.dashboard, c.hasDash = nil, false
	return nil
}

type countingSource struct {
	calls int
	value tracking.ProductProgress
}

func (s *countingSource) ProductProgress(_ context.Context, designation string) (tracking.ProductProgress, error) {
	s.calls++
	v := s.value
	v.Product = designation
	return v, nil
}

func (s *countingSource) ListProductProgress(context.Context) ([]tracking.ProductProgress, error) {
	s.calls++
	return []tracking.ProductProgress{s.value}, nil
}

func TestManagerReadThroughAndInvalidate(t *testing.T) {
	src := &countingSource{value: tracking.ProductProgress{TotalParts: 2, CompletedStages: 1, PossibleStages: 4}}
	cache := newMemCache()
	m := NewManager(src, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pp, err := m.ProductProgress(ctx, "Gear")
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		if pp.CompletedStages != 1 {
			t.Errorf("CompletedStages = %d, want 1", pp.CompletedStages)
		}
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}

	m.Invalidate("Gear")
	src.value.CompletedStages = 2
	pp, _ := m.ProductProgress(ctx, "Gear")
	if pp.CompletedStages != 2 || src.calls != 2 {
		t.Errorf("after invalidate: completed=%d calls=%d", pp.CompletedStages, src.calls)
	}

	m.ListProductProgress(ctx)
	m.ListProductProgress(ctx)
	if src.calls != 3 {
		t.Errorf("dashboard source calls = %d, want 3", src.calls)
	}
	m.Flush()
	m.ListProductProgress(ctx)
	if src.calls != 4 {
		t.Errorf("calls after flush = %d, want 4", src.calls)
	}
}

func TestManagerFallsBackWhenCacheFails(t *testing.T) {
	src := &countingSource{value: tracking.ProductProgress{TotalParts: 1}}
	cache := newMemCache()
	cache.fail = true
	m := NewManager(src, cache, time.Minute)

	pp, err := m.ProductProgress(context.Background(), "Gear")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if pp.Product != "Gear" || pp.TotalParts != 1 {
		t.Errorf("pp = %+v", pp)
	}
}

func TestManagerWithoutCache(t *testing.T) {
	src := &countingSource{}
	m := NewManager(src, nil, 0)
	m.ProductProgress(context.Background(), "Gear")
	m.ProductProgress(context.Background(), "Gear")
	m.Invalidate("Gear")
	m.Flush()
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}

// racingSource returns the value it read before running during, which models
// a writer committing and invalidating while the reader computes.
type racingSource struct {
	countingSource
	during func()
}

func (s *racingSource) ProductProgress(ctx context.Context, designation string) (tracking.ProductProgress, error) {
	v, err := s.countingSource.ProductProgress(ctx, designation)
	if s.during != nil {
		s.during()
		s.during = nil
	}
	return v, err
}

func (s *racingSource) ListProductProgress(ctx context.Context) ([]tracking.ProductProgress, error) {
	list, err := s.countingSource.ListProductProgress(ctx)
	if s.during != nil {
		s.during()
		s.during = nil
	}
	return list, err
}

func TestManagerDoesNotCacheSnapshotOlderThanInvalidate(t *testing.T) {
	src := &racingSource{}
	cache := newMemCache()
	m := NewManager(src, cache, time.Minute)
	ctx := context.Background()

	src.during = func() {
		src.value.CompletedStages = 1
		m.Invalidate("Gear")
	}
	pp, err := m.ProductProgress(ctx, "Gear")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if pp.CompletedStages != 0 {
		t.Errorf("first read CompletedStages = %d, want 0", pp.CompletedStages)
	}
	if _, ok := cache.products["Gear"]; ok {
		t.Fatal("stale snapshot was stored after invalidate")
	}
	pp, _ = m.ProductProgress(ctx, "Gear")
	if pp.CompletedStages != 1 {
		t.Errorf("after commit CompletedStages = %d, want 1", pp.CompletedStages)
	}
	if cache.products["Gear"].CompletedStages != 1 {
		t.Errorf("cached CompletedStages = %d, want 1", cache.products["Gear"].CompletedStages)
	}

	src.during = func() { m.Flush() }
	m.ListProductProgress(ctx)
	if cache.hasDash {
		t.Error("stale dashboard was stored after flush")
	}
	m.ListProductProgress(ctx)
	if !cache.hasDash {
		t.Error("dashboard not cached on an undisturbed read")
	}
}
