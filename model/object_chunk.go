package model

import "time"

// ObjectChunk is one fragment of an object's content, stored when the
// chunk backend is the database itself.
type ObjectChunk struct {
	ID uint64 `gorm:"primaryKey"`

	ObjectName string `gorm:"column:object_name;size:255;not null;uniqueIndex:idx_object_chunk"`
	ChunkIndex int    `gorm:"column:chunk_index;not null;uniqueIndex:idx_object_chunk"`
	Data       []byte `gorm:"column:data;type:longblob;not null"`

	CreatedAt time.Time
}

// TableName returns the database table name.
func (ObjectChunk) TableName() string {
	return "object_chunk"
}

// ChunkOwner summarises the chunks stored under one object name.
type ChunkOwner struct {
	ObjectName string
	Chunks     int
	OldestAt   time.Time
}
