package entity

import "strings"

// Image is raw icon bytes together with the file extension they are stored under.
type Image struct {
	Data      []byte
	Extension string
}

// CheckStatus is the outcome of an icon availability check.
type CheckStatus string

const (
	CheckStatusAvailable       CheckStatus = "available"
	CheckStatusConfirmedAbsent CheckStatus = "confirmed_absent"
	CheckStatusProcessing      CheckStatus = "processing"
	CheckStatusError           CheckStatus = "error"
)

// GetStatus is the outcome of serving an icon from the cache.
type GetStatus int

const (
	GetStatusOK GetStatus = iota
	GetStatusNotModified
	GetStatusNotFound
)

// GetResult is what the cache can serve for an asset.
type GetResult struct {
	Status      GetStatus
	Data        []byte
	ContentType string
	ETag        string
}

var contentTypeByExtension = map[string]string{
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// ContentTypeForExtension maps a cached file extension to its content type.
// Unknown extensions report false and must not be served.
func ContentTypeForExtension(ext string) (string, bool) {
	ct, ok := contentTypeByExtension[strings.ToLower(ext)]
	return ct, ok
}

// ExtensionForContentType is the inverse of ContentTypeForExtension, used for uploads.
func ExtensionForContentType(contentType string) (string, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "image/png":
		return "png", true
	case "image/svg+xml":
		return "svg", true
	case "image/jpeg":
		return "jpg", true
	case "image/webp":
		return "webp", true
	case "image/gif":
		return "gif", true
	default:
		return "", false
	}
}
