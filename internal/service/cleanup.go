package service

import (
	"context"
	"time"

	"ChunkVault/internal/errs"
	"ChunkVault/internal/metrics"

	"github.com/rs/zerolog/log"
)

// PurgeOrphan removes the chunks of name unless a committed record owns
// them. It reports whether chunks were removed.
func (s *ObjectService) PurgeOrphan(ctx context.Context, name string) (bool, error) {
	if err := s.checkReady("purge"); err != nil {
		return false, err
	}
	_, err := s.catalog.GetByName(ctx, name)
	if err == nil {
		log.Debug().Str("object", name).Msg("chunks owned by a committed record, keep")
		return false, nil
	}
	if !errs.IsNotFound(err) {
		return false, errs.StreamIO("purge", name, err)
	}
	if n := s.leases.open(name); n > 0 {
		log.Debug().Str("object", name).Int("streams", n).Msg("chunks still streaming, keep")
		return false, nil
	}
	if err := s.chunks.RemoveChunks(ctx, name); err != nil {
		return false, errs.Cleanup("purge", name, err)
	}
	metrics.OrphansRemoved.Inc()
	return true, nil
}

// SweepResult summarises one orphan sweep.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// SweepOrphans removes chunk sets that have no record and whose oldest
// chunk is older than grace. grace must exceed the upload timeout, or
// chunks of uploads still in progress may be removed.
func (s *ObjectService) SweepOrphans(ctx context.Context, grace time.Duration) (SweepResult, error) {
	var result SweepResult
	if err := s.checkReady("sweep"); err != nil {
		return result, err
	}
	owners, err := s.chunks.ListOwners(ctx)
	if err != nil {
		return result, errs.StreamIO("sweep", "", err)
	}
	cutoff := s.opts.Now().Add(-grace)
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		if owner.OldestAt.After(cutoff) {
			continue
		}
		removed, err := s.PurgeOrphan(ctx, owner.ObjectName)
		if err != nil {
			result.Failed++
			log.Warn().Err(err).Str("object", owner.ObjectName).Msg("sweep purge failed")
			continue
		}
		if removed {
			result.Removed++
			log.Info().Str("object", owner.ObjectName).Int("chunks", owner.Chunks).Msg("orphan chunks removed")
		}
	}
	return result, nil
}

// UploadTimeout is the deadline applied to each upload.
func (s *ObjectService) UploadTimeout() time.Duration {
	return s.opts.UploadTimeout
}
