package model

import "time"

// ObjectRecord is the catalog entry of one stored object.
// It becomes visible to readers only after every chunk has been written.
type ObjectRecord struct {
	ID uint64 `gorm:"primaryKey" json:"-" bson:"-"`

	Name        string `gorm:"column:name;size:255;uniqueIndex;not null" json:"filename" bson:"filename"`
	ContentType string `gorm:"column:content_type;size:255;not null" json:"contentType" bson:"contentType"`
	Length      int64  `gorm:"column:length;not null" json:"length" bson:"length"`
	ChunkSize   int64  `gorm:"column:chunk_size;not null" json:"chunkSize" bson:"chunkSize"`
	Checksum    string `gorm:"column:checksum;size:16" json:"checksum,omitempty" bson:"checksum,omitempty"`

	Metadata Metadata `gorm:"column:metadata;type:json;serializer:json" json:"metadata,omitempty" bson:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"uploadDate" bson:"uploadDate"`
}

// TableName returns the database table name.
func (ObjectRecord) TableName() string {
	return "object_record"
}

// ChunkCount is the number of chunks the object was split into.
func (r *ObjectRecord) ChunkCount() int {
	if r.Length <= 0 || r.ChunkSize <= 0 {
		return 0
	}
	return int((r.Length + r.ChunkSize - 1) / r.ChunkSize)
}
