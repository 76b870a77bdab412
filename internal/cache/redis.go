package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dupeforge/dupeforge/models"
)

// indexKeySuffix is the key of the single sorted set that tracks every stored
// cache key (scored by StoredAt), so Keys/List read that set and filter it by
// prefix instead of running a SCAN over the whole keyspace.
const indexKeySuffix = "__index"

// Redis is the production Scan Cache backend, one logical store shared
// across processes.
type Redis struct {
	client *redis.Client
	ttlCap time.Duration
}

// NewRedis dials addr (host:port) with the given database index.
func NewRedis(addr string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewRedisClient wraps an already-constructed client, e.g. one pointed at a
// miniredis instance in tests.
func NewRedisClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(key string) (*models.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return &entry, nil
}

func (r *Redis) Put(entry models.CacheEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	var ttl time.Duration
	if entry.TTLSeconds > 0 {
		ttl = time.Duration(entry.TTLSeconds) * time.Second
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, entry.Key, data, ttl)
	pipe.ZAdd(ctx, indexKeySuffix, redis.Z{Score: float64(entry.StoredAt.Unix()), Member: entry.Key})
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis put %s: %w", entry.Key, err)
	}
	return nil
}

func (r *Redis) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, indexKeySuffix, key)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	members, err := r.client.ZRange(ctx, indexKeySuffix, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index scan: %w", err)
	}
	var out []string
	for _, m := range members {
		if len(m) >= len(prefix) && m[:len(prefix)] == prefix {
			out = append(out, m)
		}
	}
	return out, nil
}

// List returns entries for prefix ordered by StoredAt ascending.
func (r *Redis) List(prefix string) ([]models.CacheEntry, error) {
	keys, err := r.Keys(prefix)
	if err != nil {
		return nil, err
	}
	var out []models.CacheEntry
	for _, k := range keys {
		e, err := r.Get(k)
		if err != nil || e == nil {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoredAt.Before(out[j].StoredAt) })
	return out, nil
}
