package service

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// GetContentBook returns content type by file extension.
func GetContentBook(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	case ".gz":
		return "application/gzip"
	case ".mp4":
		return "video/mp4"
	default:
		return defaultContentType
	}
}

// resolveContentType picks the declared type, then the extension table,
// then a sniff of the first chunk.
func resolveContentType(declared, filename string, head []byte) string {
	if ct := normalizeContentType(declared); ct != "" && ct != defaultContentType {
		return ct
	}
	if ct := GetContentBook(filename); ct != defaultContentType {
		return ct
	}
	if len(head) == 0 {
		return defaultContentType
	}
	return mimetype.Detect(head).String()
}

func normalizeContentType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return mime.FormatMediaType(mediaType, params)
}
