package utils

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"path"
	"strings"

	"ChunkVault/internal/errs"
)

// nameEntropyBytes gives 128 bits of randomness per object name.
const nameEntropyBytes = 16

// EntropySource feeds GenerateObjectName. Tests swap it for a failing reader.
var EntropySource io.Reader = rand.Reader

// FileExt returns the extension of a client-supplied filename including
// the leading dot, or "" when there is none. Directory parts are ignored.
func FileExt(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return path.Ext(base)
}

// GenerateObjectName returns 32 hex characters of fresh randomness
// followed by ext. Uniqueness is statistical; the catalog still rejects
// collisions at commit.
func GenerateObjectName(ext string) (string, error) {
	buf := make([]byte, nameEntropyBytes)
	if _, err := io.ReadFull(EntropySource, buf); err != nil {
		return "", errs.EntropySource("generate name", err)
	}
	return hex.EncodeToString(buf) + ext, nil
}
