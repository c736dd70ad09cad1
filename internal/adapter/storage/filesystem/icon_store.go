package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"icon-resolver/internal/domain"
	domainRepo "icon-resolver/internal/domain/repository"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.IconRepository = (*IconStore)(nil)

const (
	defaultIconsDir   = "images/assets/all"
	customIconsDir    = "images/assets/custom"
	defaultStemSuffix = "_small"

	negativeMarkerExtension = "svg"

	// CanonicalETH is the collection asset every wrapped native token resolves to.
	CanonicalETH = "ETH"
)

// wrappedNativeAssets map to CanonicalETH without a database lookup.
var wrappedNativeAssets = map[string]struct{}{
	"eip155:1/erc20:0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2":     {},
	"eip155:10/erc20:0x4200000000000000000000000000000000000006":    {},
	"eip155:8453/erc20:0x4200000000000000000000000000000000000006":  {},
	"eip155:42161/erc20:0x82aF49447D8a07e3bd95BD0d56f35241523fBab1": {},
}

// IconStore implements domainRepo.IconRepository on a billy filesystem rooted at the data directory.
type IconStore struct {
	fs       billy.Filesystem
	metadata domainRepo.MetadataRepository
	logger   *zap.Logger
}

// NewIconStore creates a new icon store. metadata is used to resolve collection main assets.
func NewIconStore(fs billy.Filesystem, metadata domainRepo.MetadataRepository, logger *zap.Logger) *IconStore {
	return &IconStore{
		fs:       fs,
		metadata: metadata,
		logger:   logger.Named("IconStore"),
	}
}

// ResolvePath returns the default cache stem of assetID.
func (s *IconStore) ResolvePath(ctx context.Context, assetID string, resolveToCollection bool) (domainRepo.Stem, error) {
	id := assetID
	if resolveToCollection {
		if _, wrapped := wrappedNativeAssets[assetID]; wrapped {
			id = CanonicalETH
		} else {
			main, found, err := s.metadata.ResolveCollectionMainAsset(ctx, assetID)
			if err != nil {
				return domainRepo.Stem{}, fmt.Errorf("resolve collection of %s: %w", assetID, err)
			}
			if found {
				id = main
			}
		}
	}

	return domainRepo.Stem{
		Dir:  defaultIconsDir,
		Name: EncodeFilename(id) + defaultStemSuffix,
	}, nil
}

// CustomStem returns the operator override stem of assetID. Overrides are never collection-resolved.
func (s *IconStore) CustomStem(assetID string) domainRepo.Stem {
	return domainRepo.Stem{
		Dir:  customIconsDir,
		Name: EncodeFilename(assetID),
	}
}

// Find returns the first entry of the custom stem or, failing that, of the default stem.
// Zero-length custom files are skipped.
func (s *IconStore) Find(_ context.Context, custom, def domainRepo.Stem) (domainRepo.CacheEntry, bool, error) {
	entry, found, err := s.scan(custom)
	if err != nil {
		return domainRepo.CacheEntry{}, false, err
	}
	if found && entry.IsNegativeMarker() {
		s.logger.Warn("Ignoring empty custom icon", zap.String("path", entry.Path))
		found = false
	}
	if found {
		entry.Custom = true
		return entry, true, nil
	}

	return s.scan(def)
}

// Read returns the bytes of entry.
func (s *IconStore) Read(_ context.Context, entry domainRepo.CacheEntry) ([]byte, error) {
	data, err := util.ReadFile(s.fs, entry.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, entry.Path, err)
	}
	return data, nil
}

// Write stores data at stem.extension, overwriting any previous file with that name.
func (s *IconStore) Write(_ context.Context, stem domainRepo.Stem, extension string, data []byte) error {
	if err := s.fs.MkdirAll(stem.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrStorage, stem.Dir, err)
	}

	path := s.fs.Join(stem.Dir, stem.Name+"."+extension)
	if err := util.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, path, err)
	}

	s.logger.Debug("Icon written", zap.String("path", path), zap.Int("size", len(data)))
	return nil
}

// WriteNegativeMarker writes a zero-length stem.svg.
func (s *IconStore) WriteNegativeMarker(ctx context.Context, stem domainRepo.Stem) error {
	return s.Write(ctx, stem, negativeMarkerExtension, nil)
}

// Remove deletes every file of stem regardless of extension. A missing stem is not an error.
func (s *IconStore) Remove(_ context.Context, stem domainRepo.Stem) error {
	infos, err := s.readDir(stem.Dir)
	if err != nil {
		return err
	}

	for _, info := range infos {
		if _, ok := matchStem(info, stem.Name); !ok {
			continue
		}
		path := s.fs.Join(stem.Dir, info.Name())
		if rmErr := s.fs.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, path, rmErr)
		}
		s.logger.Debug("Icon removed", zap.String("path", path))
	}
	return nil
}

func (s *IconStore) scan(stem domainRepo.Stem) (domainRepo.CacheEntry, bool, error) {
	infos, err := s.readDir(stem.Dir)
	if err != nil {
		return domainRepo.CacheEntry{}, false, err
	}

	for _, info := range infos {
		ext, ok := matchStem(info, stem.Name)
		if !ok {
			continue
		}
		return domainRepo.CacheEntry{
			Path:      s.fs.Join(stem.Dir, info.Name()),
			Extension: ext,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		}, true, nil
	}
	return domainRepo.CacheEntry{}, false, nil
}

// readDir lists dir, treating a missing directory as empty.
func (s *IconStore) readDir(dir string) ([]os.FileInfo, error) {
	infos, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrStorage, dir, err)
	}
	return infos, nil
}

// matchStem reports whether info is a regular file named stem.<ext> with a single extension.
func matchStem(info os.FileInfo, stem string) (string, bool) {
	if info.IsDir() {
		return "", false
	}
	name := info.Name()
	if !strings.HasPrefix(name, stem+".") {
		return "", false
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" || len(name) != len(stem)+1+len(ext) {
		return "", false
	}
	return ext, true
}

// EncodeFilename percent-encodes every byte outside [A-Za-z0-9._~-].
func EncodeFilename(id string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '.', c == '_', c == '~', c == '-':
		return true
	default:
		return false
	}
}
