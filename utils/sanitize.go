package utils

import (
	"fmt"
	"strings"
)

// SanitizeHeaderFilename removes characters that can break headers.
func SanitizeHeaderFilename(name string) string {
	clean := strings.TrimSpace(name)
	clean = strings.NewReplacer("\r", "", "\n", "", "\"", "", "\\", "").Replace(clean)
	if clean == "" {
		return "download"
	}
	return clean
}

// ContentDisposition builds an inline or attachment header value.
func ContentDisposition(name string, inline bool) string {
	kind := "attachment"
	if inline {
		kind = "inline"
	}
	return fmt.Sprintf("%s; filename=\"%s\"", kind, SanitizeHeaderFilename(name))
}
