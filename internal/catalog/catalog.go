// Package catalog holds the object records. A record in the catalog is
// the only proof that an object exists.
package catalog

import (
	"context"
	"sort"

	"ChunkVault/model"
)

// Catalog stores one record per object name.
//
// ListAll returns records in commit order: ascending CreatedAt, ties
// broken by name. An empty catalog lists as an empty, non-nil slice.
type Catalog interface {
	Ping(ctx context.Context) error
	Put(ctx context.Context, record *model.ObjectRecord) error
	GetByName(ctx context.Context, name string) (*model.ObjectRecord, error)
	ListAll(ctx context.Context) ([]model.ObjectRecord, error)
	// Delete removes the record and returns it so the caller can purge
	// its chunks.
	Delete(ctx context.Context, name string) (*model.ObjectRecord, error)
}

func sortRecords(records []model.ObjectRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].Name < records[j].Name
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
