package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps rendered statements in Redis. Statements are pure
// functions of the ledger, so entries are invalidated whenever a period
// changes instead of carrying a short TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func clave(tipo string, anio, mes int, extra string) string {
	k := fmt.Sprintf("contable:reportes:%s:%d-%02d", tipo, anio, mes)
	if extra != "" {
		k += ":" + extra
	}
	return k
}

// Get loads a cached statement into dest; a miss or a nil cache just
// returns false.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores a rendered statement; cache failures are ignored.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key, raw, c.ttl)
}

// InvalidatePeriodo drops every cached statement of (anio, mes); called
// after approvals, voids, closes and recalculations touch the period.
func (c *Cache) InvalidatePeriodo(ctx context.Context, anio, mes int) {
	if c == nil || c.rdb == nil {
		return
	}
	pattern := fmt.Sprintf("contable:reportes:*:%d-%02d*", anio, mes)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
}
