package prodcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parttracker/tracking"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func productKey(product string) string {
	return "parttracker:progress:product:" + product
}

const (
	dashboardKey   = "parttracker:progress:dashboard"
	allProductsKey = "parttracker:progress:products"
)

func (r *RedisStore) GetProduct(ctx context.Context, product string) (*tracking.ProductProgress, error) {
	data, err := r.client.Get(ctx, productKey(product)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pp tracking.ProductProgress
	return &pp, json.Unmarshal(data, &pp)
}

func (r *RedisStore) SetProduct(ctx context.Context, pp tracking.ProductProgress, ttl time.Duration) error {
	data, err := json.Marshal(pp)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, productKey(pp.Product), data, ttl)
	pipe.SAdd(ctx, allProductsKey, pp.Product)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetDashboard(ctx context.Context) ([]tracking.ProductProgress, bool, error) {
	data, err := r.client.Get(ctx, dashboardKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var list []tracking.ProductProgress
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

func (r *RedisStore) SetDashboard(ctx context.Context, list []tracking.ProductProgress, ttl time.Duration) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, dashboardKey, data, ttl).Err()
}

// RemoveProduct drops the product entry and the dashboard aggregate containing it.
func (r *RedisStore) RemoveProduct(ctx context.Context, product string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, productKey(product), dashboardKey)
	pipe.SRem(ctx, allProductsKey, product)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	products, err := r.client.SMembers(ctx, allProductsKey).Result()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range products {
		if err := r.RemoveProduct(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	if err := r.client.Del(ctx, allProductsKey, dashboardKey).Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
