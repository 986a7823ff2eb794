package prodcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"parttracker/tracking"
)

func testRedis(t *testing.T) (*RedisStore, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), client, srv
}

func TestRedisStoreRoundTrip(t *testing.T) {
	rs, _, srv := testRedis(t)
	ctx := context.Background()

	if pp, err := rs.GetProduct(ctx, "Gear"); err != nil || pp != nil {
		t.Fatalf("empty GetProduct = %v, %v", pp, err)
	}
	in := tracking.ProductProgress{Product: "Gear", TotalParts: 2, CompletedStages: 3, PossibleStages: 8}
	if err := rs.SetProduct(ctx, in, time.Minute); err != nil {
		t.Fatalf("set product: %v", err)
	}
	if ttl := srv.TTL(productKey("Gear")); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}
	got, err := rs.GetProduct(ctx, "Gear")
	if err != nil || got == nil || *got != in {
		t.Fatalf("GetProduct = %+v, %v", got, err)
	}

	if err := rs.SetDashboard(ctx, []tracking.ProductProgress{in}, time.Minute); err != nil {
		t.Fatalf("set dashboard: %v", err)
	}
	if err := rs.RemoveProduct(ctx, "Gear"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := rs.GetDashboard(ctx); ok {
		t.Error("dashboard should be dropped with its product")
	}
	if got, _ := rs.GetProduct(ctx, "Gear"); got != nil {
		t.Error("product still cached after remove")
	}
}

type failPipelines struct{}

var errPipeline = errors.New("pipeline refused")

func (failPipelines) DialHook(next redis.DialHook) redis.DialHook { return next }
func (failPipelines) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}
func (failPipelines) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error { return errPipeline }
}

func TestRedisFlushAllReportsRemoveErrors(t *testing.T) {
	rs, client, srv := testRedis(t)
	ctx := context.Background()
	for _, p := range []string{"Gear", "Shaft"} {
		if err := rs.SetProduct(ctx, tracking.ProductProgress{Product: p}, time.Minute); err != nil {
			t.Fatalf("set %s: %v", p, err)
		}
	}

	client.AddHook(failPipelines{})
	err := rs.FlushAll(ctx)
	if !errors.Is(err, errPipeline) {
		t.Fatalf("FlushAll err = %v, want pipeline error", err)
	}
	if srv.Exists(allProductsKey) {
		t.Error("membership set should still be deleted")
	}
}
