package storage

import (
	"context"

	"ChunkVault/model"
)

// ChunkStore persists object chunks keyed by (object name, index).
// Implementations must be safe for concurrent use.
type ChunkStore interface {
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// PutChunk stores data under (name, index). data may be reused by the
	// caller after PutChunk returns.
	PutChunk(ctx context.Context, name string, index int, data []byte) error
	// GetChunk returns the bytes of one chunk, or an errs.ErrNotFound error.
	GetChunk(ctx context.Context, name string, index int) ([]byte, error)
	// RemoveChunks deletes every chunk of name. Removing nothing is not an error.
	RemoveChunks(ctx context.Context, name string) error
	// ListOwners summarises chunk sets per object name.
	ListOwners(ctx context.Context) ([]model.ChunkOwner, error)
}
