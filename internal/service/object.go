package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"ChunkVault/internal/catalog"
	"ChunkVault/internal/codec"
	"ChunkVault/internal/errs"
	"ChunkVault/internal/metrics"
	"ChunkVault/internal/storage"
	"ChunkVault/model"

	"github.com/rs/zerolog/log"
)

// CleanupQueue receives chunk sets whose immediate removal failed so a
// worker can retry later.
type CleanupQueue interface {
	PublishCleanup(ctx context.Context, name, reason string) error
}

// Options tunes an ObjectService. Zero values pick the defaults below.
type Options struct {
	ChunkSize      int
	UploadTimeout  time.Duration
	CleanupTimeout time.Duration
	MaxUploadBytes int64
	Cleanup        CleanupQueue
	Now            func() time.Time
}

const (
	defaultUploadTimeout  = 30 * time.Minute
	defaultCleanupTimeout = time.Minute
)

// ObjectService is the store handle: upload, lookup, listing, streaming
// and deletion of chunked objects. It must be opened before use.
type ObjectService struct {
	catalog catalog.Catalog
	chunks  storage.ChunkStore
	opts    Options

	ready  atomic.Bool
	leases *leaseTable
	bg     sync.WaitGroup
}

// NewObjectService builds an unopened service over a catalog and a chunk store.
func NewObjectService(cat catalog.Catalog, chunks storage.ChunkStore, opts Options) *ObjectService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = codec.DefaultChunkSize
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = defaultCleanupTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ObjectService{
		catalog: cat,
		chunks:  chunks,
		opts:    opts,
		leases:  newLeaseTable(),
	}
}

// Open pings both backends and marks the service ready.
func (s *ObjectService) Open(ctx context.Context) error {
	if err := s.catalog.Ping(ctx); err != nil {
		return errs.StreamIO("open catalog", "", err)
	}
	if err := s.chunks.Ping(ctx); err != nil {
		return errs.StreamIO("open chunk store", "", err)
	}
	s.ready.Store(true)
	log.Info().Int("chunk_size", s.opts.ChunkSize).Msg("object store ready")
	return nil
}

// Ready reports whether Open has succeeded.
func (s *ObjectService) Ready() bool {
	return s.ready.Load()
}

// Close marks the service unready and waits for deferred purges.
func (s *ObjectService) Close() {
	s.ready.Store(false)
	s.bg.Wait()
}

// ChunkSize is the chunk size applied to new uploads.
func (s *ObjectService) ChunkSize() int {
	return s.opts.ChunkSize
}

func (s *ObjectService) checkReady(op string) error {
	if !s.ready.Load() {
		return errs.NotReady(op)
	}
	return nil
}

// ListObjects returns every committed record in commit order. An empty
// store returns an empty slice and no error.
func (s *ObjectService) ListObjects(ctx context.Context) ([]model.ObjectRecord, error) {
	if err := s.checkReady("list"); err != nil {
		return nil, err
	}
	records, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, errs.StreamIO("list", "", err)
	}
	if records == nil {
		records = []model.ObjectRecord{}
	}
	return records, nil
}

// GetObjectByName resolves one record.
func (s *ObjectService) GetObjectByName(ctx context.Context, name string) (*model.ObjectRecord, error) {
	if err := s.checkReady("get"); err != nil {
		return nil, err
	}
	record, err := s.catalog.GetByName(ctx, name)
	if err != nil {
		return nil, errs.StreamIO("get", name, err)
	}
	return record, nil
}

// ObjectReader streams one object. It is forward-only and holds at most
// one chunk of unread data.
type ObjectReader struct {
	*codec.Reader
	Record *model.ObjectRecord
}

// PipeTo writes the whole object to w and closes the reader.
func (r *ObjectReader) PipeTo(w io.Writer) (int64, error) {
	defer r.Close()
	n, err := r.WriteTo(w)
	metrics.StreamedBytes.Add(float64(n))
	return n, err
}

// StreamObjectByName opens a stream over a committed object. The lease
// taken here keeps a concurrent delete from purging chunks until the
// stream is closed; callers must Close it.
func (s *ObjectService) StreamObjectByName(ctx context.Context, name string) (*ObjectReader, error) {
	if err := s.checkReady("stream"); err != nil {
		return nil, err
	}
	s.leases.acquire(name)
	record, err := s.catalog.GetByName(ctx, name)
	if err != nil {
		s.releaseLease(name)
		return nil, errs.StreamIO("stream", name, err)
	}
	metrics.OpenStreams.Inc()
	reader := codec.NewReader(ctx, s.chunks, record.Name, record.ChunkCount(),
		codec.WithLength(record.Length),
		codec.WithChecksum(record.Checksum),
		codec.OnClose(func() {
			metrics.OpenStreams.Dec()
			s.releaseLease(name)
		}),
	)
	return &ObjectReader{Reader: reader, Record: record}, nil
}

func (s *ObjectService) releaseLease(name string) {
	if purge := s.leases.release(name); purge != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			purge()
		}()
	}
}

// DeleteObject removes the record, then its chunks. Once the record is
// gone the object is invisible; chunk removal is deferred while streams
// opened before the delete are still reading, and queued for retry if it
// fails.
func (s *ObjectService) DeleteObject(ctx context.Context, name string) error {
	if err := s.checkReady("delete"); err != nil {
		return err
	}
	record, err := s.catalog.Delete(ctx, name)
	if err != nil {
		metrics.Deletes.WithLabelValues("error").Inc()
		return errs.StreamIO("delete", name, err)
	}
	purge := func() {
		s.removeChunks(context.WithoutCancel(ctx), record.Name, "delete")
	}
	if s.leases.deferPurge(record.Name, purge) {
		log.Debug().Str("object", record.Name).Msg("chunk purge deferred until open streams close")
	} else {
		purge()
	}
	metrics.Deletes.WithLabelValues("ok").Inc()
	log.Info().Str("object", record.Name).Msg("object deleted")
	return nil
}

// removeChunks is the best-effort purge shared by failed uploads and
// deletes. Failures are logged as cleanup failures, queued when a queue is
// configured, and never returned.
func (s *ObjectService) removeChunks(ctx context.Context, name, reason string) {
	removeCtx, cancel := context.WithTimeout(ctx, s.opts.CleanupTimeout)
	err := s.chunks.RemoveChunks(removeCtx, name)
	cancel()
	if err == nil {
		return
	}
	metrics.CleanupFailures.Inc()
	log.Warn().
		Err(errs.Cleanup(reason, name, err)).
		Str("kind", "cleanup_failure").
		Str("object", name).
		Msg("chunk cleanup failed")
	if s.opts.Cleanup == nil {
		return
	}
	queueCtx, cancel := context.WithTimeout(ctx, s.opts.CleanupTimeout)
	defer cancel()
	if qErr := s.opts.Cleanup.PublishCleanup(queueCtx, name, reason); qErr != nil {
		log.Warn().Err(qErr).Str("object", name).Msg("queue chunk cleanup failed")
	}
}
