package worker

import (
	"context"
	"errors"
	"time"

	"ChunkVault/internal/repo"
	"ChunkVault/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const sweepLockKey = "chunkvault:lock:sweep"

// Sweeper periodically removes orphaned chunk sets. With a Redis client
// only one process sweeps per interval.
type Sweeper struct {
	Service  *service.ObjectService
	Redis    *redis.Client
	Interval time.Duration
	Grace    time.Duration
}

// Run sweeps once immediately, then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return errors.New("sweeper: interval must be positive")
	}
	grace := s.Grace
	if floor := s.Service.UploadTimeout(); grace <= floor {
		log.Warn().Dur("grace", grace).Dur("upload_timeout", floor).Msg("orphan grace raised above upload timeout")
		grace = floor + time.Minute
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		s.sweepOnce(ctx, grace)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context, grace time.Duration) {
	if s.Redis != nil {
		lock := repo.NewRedisLock(s.Redis, sweepLockKey, s.Interval)
		if err := lock.Lock(ctx); err != nil {
			if errors.Is(err, repo.ErrLockBusy) {
				log.Debug().Msg("sweep skipped, lock held elsewhere")
			} else {
				log.Warn().Err(err).Msg("sweep lock failed")
			}
			return
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("sweep unlock failed")
			}
		}()
	}

	start := time.Now()
	result, err := s.Service.SweepOrphans(ctx, grace)
	if err != nil {
		log.Warn().Err(err).Msg("orphan sweep failed")
		return
	}
	log.Info().
		Int("scanned", result.Scanned).
		Int("removed", result.Removed).
		Int("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("orphan sweep done")
}
