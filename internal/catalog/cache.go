package catalog

import (
	"context"
	"time"

	"ChunkVault/model"
	"ChunkVault/utils"

	"github.com/rs/zerolog/log"
)

// Cached fronts a Catalog with a record cache for GetByName. Misses are
// never cached, and fills are skipped once a name carries a deletion
// marker.
type Cached struct {
	Catalog
	cache utils.Cache
	ttl   time.Duration
}

// NewCached wraps inner. A nil cache or a non-positive ttl returns inner.
func NewCached(inner Catalog, cache utils.Cache, ttl time.Duration) Catalog {
	if cache == nil || ttl <= 0 {
		return inner
	}
	return &Cached{Catalog: inner, cache: cache, ttl: ttl}
}

func (c *Cached) Put(ctx context.Context, record *model.ObjectRecord) error {
	if err := c.Catalog.Put(ctx, record); err != nil {
		return err
	}
	if err := utils.SetRecordToCache(ctx, c.cache, record, c.ttl); err != nil {
		log.Warn().Err(err).Str("object", record.Name).Msg("cache record failed")
	}
	return nil
}

func (c *Cached) GetByName(ctx context.Context, name string) (*model.ObjectRecord, error) {
	if record, ok := utils.GetRecordFromCache(ctx, c.cache, name); ok {
		return record, nil
	}
	record, err := c.Catalog.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := utils.SetRecordToCache(ctx, c.cache, record, c.ttl); err != nil {
		log.Warn().Err(err).Str("object", name).Msg("cache record failed")
	}
	return record, nil
}

// Delete marks the name deleted before touching the backend, so a
// GetByName that read the record earlier cannot cache it afterwards.
func (c *Cached) Delete(ctx context.Context, name string) (*model.ObjectRecord, error) {
	if err := utils.MarkRecordDeleted(ctx, c.cache, name, c.tombstoneTTL()); err != nil {
		return nil, err
	}
	record, err := c.Catalog.Delete(ctx, name)
	if invErr := utils.InvalidateRecordCache(ctx, c.cache, name); invErr != nil {
		log.Warn().Err(invErr).Str("object", name).Msg("invalidate record cache failed")
	}
	return record, err
}

// tombstoneTTL outlives both cached entries and slow backend reads.
func (c *Cached) tombstoneTTL() time.Duration {
	return max(2*c.ttl, time.Hour)
}
