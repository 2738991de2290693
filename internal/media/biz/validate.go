package biz

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// allowedMimeTypes is the accepted contribution surface. Anything outside
// this set is rejected before a placeholder record is created.
var allowedMimeTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// ValidateContentType checks the MIME type against the allow-list and
// returns the canonical extension for stored object keys.
func ValidateContentType(mimeType string) (string, error) {
	normalized, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", fmt.Errorf("unparseable content type %q", mimeType)
	}
	ext, ok := allowedMimeTypes[normalized]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", normalized)
	}
	return ext, nil
}

// ValidateFileSize checks the declared size against the configured cap.
// Zero and negative sizes are rejected: the grant is bound to an exact
// content length and the store enforces it on PUT.
func ValidateFileSize(sizeBytes, maxBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be positive, got %d", sizeBytes)
	}
	if sizeBytes > maxBytes {
		return fmt.Errorf("file size %d exceeds limit %d", sizeBytes, maxBytes)
	}
	return nil
}

// ExtensionForMime returns the canonical extension for an allowed MIME
// type, or an empty string when the type is not in the allow-list.
func ExtensionForMime(mimeType string) string {
	return allowedMimeTypes[mimeType]
}

// SanitizeFileName strips any path components from a client-supplied file
// name. The stored object key never uses the client name, but the record
// keeps it for display.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
