package dto

import (
	"time"

	"ChunkVault/model"
)

// unknownField is shown for metadata keys the uploader did not supply.
const unknownField = "Unknown"

// ObjectView is one row of the listing page.
type ObjectView struct {
	Filename            string         `json:"filename"`
	ContentType         string         `json:"contentType"`
	Length              int64          `json:"length"`
	ChunkSize           int64          `json:"chunkSize"`
	UploadDate          time.Time      `json:"uploadDate"`
	Metadata            model.Metadata `json:"metadata,omitempty"`
	IsImage             bool           `json:"isImage"`
	MetadataName        string         `json:"metadataName"`
	MetadataEmail       string         `json:"metadataEmail"`
	MetadataChapterName string         `json:"metadataChapterName"`
}

// IndexResponse is the body of GET /. Files is false when the store is empty.
type IndexResponse struct {
	Files interface{} `json:"files"`
}

// UploadResponse is returned to clients that ask for JSON instead of a redirect.
type UploadResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Length      int64  `json:"length"`
}

// IsImage reports whether a content type is rendered inline by the listing page.
func IsImage(contentType string) bool {
	return contentType == "image/jpeg" || contentType == "image/png"
}

func metaOrUnknown(m model.Metadata, key string) string {
	if v, ok := m.Lookup(key); ok && v != "" {
		return v
	}
	return unknownField
}

// NewObjectView applies presentation defaults to a record. The record is
// not modified.
func NewObjectView(r model.ObjectRecord) ObjectView {
	return ObjectView{
		Filename:            r.Name,
		ContentType:         r.ContentType,
		Length:              r.Length,
		ChunkSize:           r.ChunkSize,
		UploadDate:          r.CreatedAt,
		Metadata:            r.Metadata,
		IsImage:             IsImage(r.ContentType),
		MetadataName:        metaOrUnknown(r.Metadata, model.MetaName),
		MetadataEmail:       metaOrUnknown(r.Metadata, model.MetaEmail),
		MetadataChapterName: metaOrUnknown(r.Metadata, model.MetaChapterName),
	}
}

// NewIndexResponse builds the listing body.
func NewIndexResponse(records []model.ObjectRecord) IndexResponse {
	if len(records) == 0 {
		return IndexResponse{Files: false}
	}
	views := make([]ObjectView, 0, len(records))
	for _, r := range records {
		views = append(views, NewObjectView(r))
	}
	return IndexResponse{Files: views}
}
