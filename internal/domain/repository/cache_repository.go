package repository

import (
	"context"
	"time"
)

// Stem identifies one icon cache slot: a path without extension.
type Stem struct {
	// Dir is the directory the entry lives in.
	Dir string
	// Name is the file name without extension.
	Name string
}

// CacheEntry is a file found for a stem.
type CacheEntry struct {
	Path      string
	Extension string
	Size      int64
	// ModTime is zero when the filesystem cannot report it.
	ModTime time.Time
	// Custom is set for operator supplied overrides.
	Custom bool
}

// IsNegativeMarker reports whether the entry records a lookup that found nothing.
func (e CacheEntry) IsNegativeMarker() bool {
	return e.Size == 0
}

// IconRepository defines the on-disk icon cache.
type IconRepository interface {
	// ResolvePath returns the default cache stem of an asset, optionally substituting its collection main asset.
	ResolvePath(ctx context.Context, assetID string, resolveToCollection bool) (Stem, error)

	// CustomStem returns the operator override stem of an asset id.
	CustomStem(assetID string) Stem

	// Find looks up the custom stem first and then the default one.
	Find(ctx context.Context, custom, def Stem) (CacheEntry, bool, error)

	// Read returns the bytes of an entry.
	Read(ctx context.Context, entry CacheEntry) ([]byte, error)

	// Write stores data under stem.extension, overwriting it.
	Write(ctx context.Context, stem Stem, extension string, data []byte) error

	// WriteNegativeMarker records that no image was found for stem.
	WriteNegativeMarker(ctx context.Context, stem Stem) error

	// Remove deletes every entry of stem regardless of extension.
	Remove(ctx context.Context, stem Stem) error
}
