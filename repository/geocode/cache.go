package geocoderepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Geocoding results are effectively static; cache them for 30 days.
const cacheTTL = 30 * 24 * time.Hour

type cachedResolver struct {
	next AddressResolver
	rdb  *redis.Client
}

// WithCache wraps a resolver with a Redis cache. Cache failures fall
// through to the underlying resolver.
func WithCache(next AddressResolver, rdb *redis.Client) AddressResolver {
	return &cachedResolver{next: next, rdb: rdb}
}

func (c *cachedResolver) Resolve(ctx context.Context, address string) (*Coordinates, error) {
	key := "geocode:" + address

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var out Coordinates
		if json.Unmarshal(raw, &out) == nil {
			return &out, nil
		}
	}

	out, err := c.next.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, raw, cacheTTL).Err()
	}
	return out, nil
}
