package engine

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"parttracker/config"
	"parttracker/messaging"
	"parttracker/prodcache"
	"parttracker/store"
	"parttracker/tracking"
)

func TestEventBusFiltersByType(t *testing.T) {
	bus := NewEventBus()
	var parts, confirmed []EventType
	bus.SubscribeTypes(func(evt Event) { parts = append(parts, evt.Type) }, EventPartCreated, EventStageConfirmed)
	id := bus.SubscribeTypes(func(evt Event) { confirmed = append(confirmed, evt.Type) }, EventStageConfirmed)

	bus.Emit(Event{Type: EventPartCreated})
	bus.Emit(Event{Type: EventStageConfirmed})
	bus.Emit(Event{Type: EventRouteChanged})
	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventStageConfirmed})

	if len(parts) != 3 {
		t.Errorf("parts = %v, want 3 events", parts)
	}
	if len(confirmed) != 1 {
		t.Errorf("confirmed = %v, want 1 event", confirmed)
	}
}

func TestEventBusStampsTimestamp(t *testing.T) {
	bus := NewEventBus()
	var got time.Time
	bus.SubscribeTypes(func(evt Event) { got = evt.Timestamp }, EventRouteChanged)
	bus.Emit(Event{Type: EventRouteChanged})
	if got.IsZero() {
		t.Error("Emit should stamp a timestamp")
	}
}

func TestOnDeliversTypedPayloads(t *testing.T) {
	bus := NewEventBus()
	var products []string
	id := On(bus, func(ev ProductEvent) { products = append(products, ev.Products()...) },
		EventPartUpdated, EventStageConfirmed)
	var routes []string
	On(bus, func(ev RouteChangedEvent) { routes = append(routes, ev.Name) }, EventRouteChanged)

	bus.Emit(Event{Type: EventPartUpdated, Payload: PartUpdatedEvent{PartID: "P-1", OldProduct: "Gear", NewProduct: "Shaft"}})
	bus.Emit(Event{Type: EventStageConfirmed, Payload: StageConfirmedEvent{PartID: "P-1", Product: "Shaft"}})
	// A payload of the wrong type is skipped instead of panicking.
	bus.Emit(Event{Type: EventRouteChanged, Payload: "Main"})
	bus.Emit(Event{Type: EventRouteChanged, Payload: RouteChangedEvent{Name: "Main"}})
	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventStageConfirmed, Payload: StageConfirmedEvent{Product: "Gear"}})

	if strings.Join(products, ",") != "Gear,Shaft,Shaft" {
		t.Errorf("products = %v, want [Gear Shaft Shaft]", products)
	}
	if len(routes) != 1 || routes[0] != "Main" {
		t.Errorf("routes = %v, want [Main]", routes)
	}
}

// mapCache is an in-memory prodcache.Cache.
type mapCache struct {
	mu       sync.Mutex
	products map[string]tracking.ProductProgress
	removed  []string
	flushes  int
}

func (c *mapCache) GetProduct(_ context.Context, product string) (*tracking.ProductProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pp, ok := c.products[product]
	if !ok {
		return nil, nil
	}
	return &pp, nil
}

func (c *mapCache) SetProduct(_ context.Context, pp tracking.ProductProgress, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[pp.Product] = pp
	return nil
}

func (c *mapCache) GetDashboard(context.Context) ([]tracking.ProductProgress, bool, error) {
	return nil, false, nil
}

func (c *mapCache) SetDashboard(context.Context, []tracking.ProductProgress, time.Duration) error {
	return nil
}

func (c *mapCache) RemoveProduct(_ context.Context, product string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, product)
	c.removed = append(c.removed, product)
	return nil
}

func (c *mapCache) FlushAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make(map[string]tracking.ProductProgress)
	c.flushes++
	return nil
}

func testEngine(t *testing.T, messagingEnabled bool) (*Engine, *mapCache) {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Defaults()
	cfg.Messaging.Enabled = messagingEnabled
	cache := &mapCache{products: make(map[string]tracking.ProductProgress)}

	eng := New(Config{AppConfig: cfg, DB: db, LogFunc: func(string, ...any) {}})
	eng.SetProgress(prodcache.NewManager(eng.Tracking(), cache, time.Minute))
	eng.Start()
	t.Cleanup(eng.Stop)
	return eng, cache
}

func seedRoutedPart(t *testing.T, eng *Engine) {
	t.Helper()
	ctx := context.Background()
	svc := eng.Tracking()
	a, err := svc.AddStage(ctx, tracking.System, "Cutting")
	if err != nil {
		t.Fatalf("add stage: %v", err)
	}
	b, err := svc.AddStage(ctx, tracking.System, "Welding")
	if err != nil {
		t.Fatalf("add stage: %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, tracking.System, tracking.RouteInput{
		Name: "Main", IsDefault: true, StageIDs: []int64{a.ID, b.ID},
	}); err != nil {
		t.Fatalf("create route: %v", err)
	}
	if _, err := svc.CreatePart(ctx, tracking.System, tracking.PartInput{PartID: "P-1", ProductDesignation: "Gear"}); err != nil {
		t.Fatalf("create part: %v", err)
	}
}

func TestConfirmInvalidatesProgressCache(t *testing.T) {
	eng, cache := testEngine(t, false)
	seedRoutedPart(t, eng)
	ctx := context.Background()

	pp, err := eng.Progress().ProductProgress(ctx, "Gear")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if pp.CompletedStages != 0 || pp.PossibleStages != 2 {
		t.Fatalf("initial progress = %+v", pp)
	}

	if _, err := eng.Tracking().ConfirmStage(ctx, tracking.Actor{}, "P-1", "Cutting", "ivan"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	pp, _ = eng.Progress().ProductProgress(ctx, "Gear")
	if pp.CompletedStages != 1 {
		t.Errorf("completed after confirm = %d, want 1 (stale cache?)", pp.CompletedStages)
	}
	if len(cache.removed) == 0 {
		t.Error("expected product invalidation")
	}
}

func TestRouteChangeFlushesCache(t *testing.T) {
	eng, cache := testEngine(t, false)
	seedRoutedPart(t, eng)
	before := cache.flushes
	if _, err := eng.Tracking().AddStage(context.Background(), tracking.System, "Painting"); err != nil {
		t.Fatalf("add stage: %v", err)
	}
	if cache.flushes != before {
		t.Error("stage dictionary change should not flush progress")
	}
	tmpl, _ := eng.Tracking().DefaultTemplate(context.Background())
	if err := eng.Tracking().DeleteTemplate(context.Background(), tracking.System, tmpl.ID); err == nil {
		t.Fatal("deleting a template in use should fail")
	}
	if cache.flushes != before {
		t.Error("failed delete should not flush")
	}
	if _, err := eng.Tracking().UpdateTemplate(context.Background(), tracking.System, tmpl.ID, tracking.RouteInput{
		Name: "Main", IsDefault: true, StageIDs: []int64{tmpl.Stages[0].StageID},
	}); err != nil {
		t.Fatalf("update route: %v", err)
	}
	if cache.flushes != before+1 {
		t.Errorf("flushes = %d, want %d", cache.flushes, before+1)
	}
}

func TestPartEventsEnqueueOutbox(t *testing.T) {
	eng, _ := testEngine(t, true)
	seedRoutedPart(t, eng)
	ctx := context.Background()
	if _, err := eng.Tracking().ConfirmStage(ctx, tracking.Actor{}, "P-1", "Cutting", "ivan"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	msgs, err := eng.DB().ListPendingOutbox(ctx, 10, 10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("outbox = %d messages, want 2", len(msgs))
	}
	if msgs[0].MsgType != messaging.TypePartCreated || msgs[1].MsgType != messaging.TypePartStageConfirmed {
		t.Errorf("types = %s, %s", msgs[0].MsgType, msgs[1].MsgType)
	}
	if msgs[1].PartID != "P-1" || msgs[1].Topic != eng.AppConfig().Messaging.PartsTopic {
		t.Errorf("message = %+v", msgs[1])
	}
	var env messaging.Envelope
	if err := json.Unmarshal(msgs[1].Payload, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var ev messaging.PartEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.Stage != "Cutting" || ev.Operator != "ivan" || ev.Product != "Gear" {
		t.Errorf("event = %+v", ev)
	}
}

func TestMessagingDisabledSkipsOutbox(t *testing.T) {
	eng, _ := testEngine(t, false)
	seedRoutedPart(t, eng)
	msgs, _ := eng.DB().ListPendingOutbox(context.Background(), 10, 10)
	if len(msgs) != 0 {
		t.Errorf("outbox = %d messages, want 0", len(msgs))
	}
}
