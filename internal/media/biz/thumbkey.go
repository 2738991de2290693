package biz

import (
	"path"
	"strings"
)

// ThumbnailPrefix is the sibling path segment thumbnails live under.
const ThumbnailPrefix = "thumbnails"

// ThumbnailKey derives the thumbnail object key for a source key. The
// derivation is pure and shared bit-exactly with the derivation worker:
// given D/F.ext the thumbnail is D/thumbnails/F.ext for images and
// D/thumbnails/F.jpg for videos (video thumbnails are always still frames).
func ThumbnailKey(objectKey, mimeType string) string {
	dir := path.Dir(objectKey)
	file := path.Base(objectKey)

	if IsVideoMime(mimeType) {
		ext := path.Ext(file)
		file = strings.TrimSuffix(file, ext) + ".jpg"
	}

	if dir == "." {
		return path.Join(ThumbnailPrefix, file)
	}
	return path.Join(dir, ThumbnailPrefix, file)
}

// IsThumbnailKey reports whether a key already points into a thumbnails/
// segment. The derivation worker uses it to ignore its own writes.
func IsThumbnailKey(objectKey string) bool {
	dir := path.Dir(objectKey)
	return dir == ThumbnailPrefix || strings.HasSuffix(dir, "/"+ThumbnailPrefix)
}

// IsVideoMime reports whether the MIME type is a video container
func IsVideoMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// IsImageMime reports whether the MIME type is an image format
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
