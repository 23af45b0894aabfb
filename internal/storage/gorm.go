package storage

import (
	"context"
	"errors"
	"time"

	"ChunkVault/internal/errs"
	"ChunkVault/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps chunks as rows of the object_chunk table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore builds a ChunkStore on an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PutChunk inserts a chunk row, overwriting a previous write of the same index.
func (s *GormStore) PutChunk(ctx context.Context, name string, index int, data []byte) error {
	chunk := model.ObjectChunk{
		ObjectName: name,
		ChunkIndex: index,
		Data:       append([]byte(nil), data...),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "object_name"},
				{Name: "chunk_index"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"data", "created_at"}),
		}).
		Create(&chunk).Error
}

func (s *GormStore) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	var chunk model.ObjectChunk
	err := s.db.WithContext(ctx).
		Where("object_name = ? AND chunk_index = ?", name, index).
		First(&chunk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("get chunk", name)
	}
	if err != nil {
		return nil, err
	}
	return chunk.Data, nil
}

func (s *GormStore) RemoveChunks(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).
		Where("object_name = ?", name).
		Delete(&model.ObjectChunk{}).Error
}

func (s *GormStore) ListOwners(ctx context.Context) ([]model.ChunkOwner, error) {
	var rows []struct {
		ObjectName string
		Chunks     int
		OldestAt   time.Time
	}
	err := s.db.WithContext(ctx).
		Model(&model.ObjectChunk{}).
		Select("object_name, COUNT(*) AS chunks, MIN(created_at) AS oldest_at").
		Group("object_name").
		Order("object_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	owners := make([]model.ChunkOwner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, model.ChunkOwner{
			ObjectName: row.ObjectName,
			Chunks:     row.Chunks,
			OldestAt:   row.OldestAt,
		})
	}
	return owners, nil
}
