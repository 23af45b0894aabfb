package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChunkVault/internal/errs"
	"ChunkVault/model"
)

type memoryChunk struct {
	data      []byte
	createdAt time.Time
}

// MemoryStore keeps chunks in process memory. It backs tests and the
// single-process "memory" backend.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]map[int]memoryChunk
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string]map[int]memoryChunk),
		now:    time.Now,
	}
}

// SetClock replaces the clock used to stamp new chunks.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) PutChunk(ctx context.Context, name string, index int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.chunks[name]
	if !ok {
		set = make(map[int]memoryChunk)
		s.chunks[name] = set
	}
	set[index] = memoryChunk{
		data:      append([]byte(nil), data...),
		createdAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[name][index]
	if !ok {
		return nil, errs.NotFound("get chunk", name)
	}
	return chunk.data, nil
}

func (s *MemoryStore) RemoveChunks(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, name)
	return nil
}

func (s *MemoryStore) ListOwners(ctx context.Context) ([]model.ChunkOwner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]model.ChunkOwner, 0, len(s.chunks))
	for name, set := range s.chunks {
		owner := model.ChunkOwner{ObjectName: name, Chunks: len(set)}
		for _, c := range set {
			if owner.OldestAt.IsZero() || c.createdAt.Before(owner.OldestAt) {
				owner.OldestAt = c.createdAt
			}
		}
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].ObjectName < owners[j].ObjectName })
	return owners, nil
}

// ChunkCount returns how many chunks are stored for name.
func (s *MemoryStore) ChunkCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[name])
}
