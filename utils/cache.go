package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChunkVault/model"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// SetUnless writes key only while guard is absent, atomically. It
	// reports whether the value was written.
	SetUnless(ctx context.Context, key, guard string, value interface{}, expiration time.Duration) (bool, error)
}

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis cache client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

// Get reads a cached value.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// Set writes a cached value.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, string(data), expiration).Err()
}

// Delete removes a cache entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Exists checks whether a cache key exists.
func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var setUnlessScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// SetUnless writes a cached value unless the guard key exists.
func (c *RedisCache) SetUnless(ctx context.Context, key, guard string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	written, err := setUnlessScript.Run(ctx, c.client, []string{key, guard}, string(data), expiration.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// BuildCacheKey builds a cache key.
func BuildCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += fmt.Sprintf(":%v", param)
	}
	return key
}

const (
	CacheKeyObjectRecord = "object:record"
	// CacheKeyObjectDeleted marks a deleted name so no later fill can
	// bring its record back.
	CacheKeyObjectDeleted = "object:deleted"
)

// cachedRecord is the JSON shape of a cached record. ObjectRecord hides
// its row ID from JSON, and the cache must not lose it.
type cachedRecord struct {
	ID     uint64             `json:"id"`
	Record model.ObjectRecord `json:"record"`
}

// GetRecordFromCache reads a cached record by name.
func GetRecordFromCache(ctx context.Context, cache Cache, name string) (*model.ObjectRecord, bool) {
	if cache == nil {
		return nil, false
	}
	var entry cachedRecord
	if err := cache.Get(ctx, BuildCacheKey(CacheKeyObjectRecord, name), &entry); err != nil {
		return nil, false
	}
	if entry.Record.Name != name {
		return nil, false
	}
	entry.Record.ID = entry.ID
	return &entry.Record, true
}

// SetRecordToCache writes a cached record unless the name was deleted.
func SetRecordToCache(ctx context.Context, cache Cache, record *model.ObjectRecord, expiration time.Duration) error {
	if cache == nil || record == nil {
		return nil
	}
	_, err := cache.SetUnless(ctx,
		BuildCacheKey(CacheKeyObjectRecord, record.Name),
		BuildCacheKey(CacheKeyObjectDeleted, record.Name),
		cachedRecord{ID: record.ID, Record: *record},
		expiration,
	)
	return err
}

// MarkRecordDeleted writes the deletion marker of name. It must outlive
// any fill that read the record before the delete.
func MarkRecordDeleted(ctx context.Context, cache Cache, name string, expiration time.Duration) error {
	if cache == nil {
		return nil
	}
	return cache.Set(ctx, BuildCacheKey(CacheKeyObjectDeleted, name), true, expiration)
}

// InvalidateRecordCache clears a cached record.
func InvalidateRecordCache(ctx context.Context, cache Cache, name string) error {
	if cache == nil {
		return nil
	}
	return cache.Delete(ctx, BuildCacheKey(CacheKeyObjectRecord, name))
}
