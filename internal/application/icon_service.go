package application

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"icon-resolver/internal/application/port"
	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	domainService "icon-resolver/internal/domain/service"
	"icon-resolver/internal/pkg/apperrors"
	"icon-resolver/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Compile-time check
var _ port.IconService = (*IconService)(nil)

const (
	iconInFlightPrefix = "icon:"

	// DefaultNegativeTTL is how long a negative marker suppresses new lookups.
	DefaultNegativeTTL = 12 * time.Hour
)

// IconServiceDeps are the collaborators of IconService.
type IconServiceDeps struct {
	Store    domainRepo.IconRepository
	Metadata domainRepo.MetadataRepository
	Images   domainService.ImageSource
	NFT      domainService.NFTImageSource
	InFlight *InFlightRegistry
	Metrics  *metrics.Metrics
}

// IconService resolves asset icons from the disk cache and fills the cache in the background.
type IconService struct {
	store       domainRepo.IconRepository
	metadata    domainRepo.MetadataRepository
	images      domainService.ImageSource
	nft         domainService.NFTImageSource
	inFlight    *InFlightRegistry
	metrics     *metrics.Metrics
	negativeTTL time.Duration
	now         func() time.Time
	rootCtx     context.Context
	logger      *zap.Logger

	pipelines sync.WaitGroup
}

// IconServiceOption customizes an IconService.
type IconServiceOption func(*IconService)

// WithClock replaces time.Now for negative marker age checks.
func WithClock(now func() time.Time) IconServiceOption {
	return func(s *IconService) { s.now = now }
}

// NewIconService creates the icon engine. Background fetches run on a context derived from
// rootCtx that is never cancelled.
func NewIconService(
	rootCtx context.Context,
	deps IconServiceDeps,
	negativeTTL time.Duration,
	logger *zap.Logger,
	opts ...IconServiceOption,
) *IconService {
	if negativeTTL <= 0 {
		negativeTTL = DefaultNegativeTTL
	}
	if deps.InFlight == nil {
		deps.InFlight = NewInFlightRegistry()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	s := &IconService{
		store:       deps.Store,
		metadata:    deps.Metadata,
		images:      deps.Images,
		nft:         deps.NFT,
		inFlight:    deps.InFlight,
		metrics:     deps.Metrics,
		negativeTTL: negativeTTL,
		now:         time.Now,
		rootCtx:     context.WithoutCancel(rootCtx),
		logger:      logger.Named("IconService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports the cache state of assetID and starts a background fetch on a miss.
func (s *IconService) Check(ctx context.Context, assetID string, opts port.CheckOptions) (entity.CheckStatus, error) {
	status, err := s.check(ctx, assetID, opts)
	s.metrics.CheckResults.WithLabelValues(string(status)).Inc()
	if err != nil {
		s.logger.Error("Icon check failed", zap.String("assetId", assetID), zap.Error(err))
	}
	return status, err
}

func (s *IconService) check(ctx context.Context, assetID string, opts port.CheckOptions) (entity.CheckStatus, error) {
	stem, err := s.store.ResolvePath(ctx, assetID, opts.UseCollection)
	if err != nil {
		return entity.CheckStatusError, err
	}

	entry, found, err := s.store.Find(ctx, s.store.CustomStem(assetID), stem)
	if err != nil {
		return entity.CheckStatusError, err
	}

	if found {
		switch {
		case entry.Custom:
			return entity.CheckStatusAvailable, nil

		case !entry.IsNegativeMarker():
			if !opts.ForceRefresh {
				return entity.CheckStatusAvailable, nil
			}
			s.logger.Debug("Forced refresh, dropping cached icon", zap.String("assetId", assetID))

		default:
			if entry.ModTime.IsZero() {
				return entity.CheckStatusError, fmt.Errorf("%w: modification time of %s unavailable", domain.ErrStorage, entry.Path)
			}
			age := s.now().Sub(entry.ModTime)
			if age < s.negativeTTL && !opts.ForceRefresh {
				return entity.CheckStatusConfirmedAbsent, nil
			}
			s.logger.Debug("Negative marker expired or refresh forced",
				zap.String("assetId", assetID), zap.Duration("age", age),
			)
		}

		if err := s.store.Remove(ctx, stem); err != nil {
			return entity.CheckStatusError, err
		}
	}

	key := iconInFlightPrefix + assetID
	if !s.inFlight.TryAcquire(key) {
		s.logger.Debug("Fetch already in progress", zap.String("assetId", assetID))
		return entity.CheckStatusProcessing, nil
	}

	s.startPipeline(key, assetID, stem)
	return entity.CheckStatusProcessing, nil
}

// startPipeline runs the fallback pipeline in the background. key is released on every exit path.
func (s *IconService) startPipeline(key, assetID string, stem domainRepo.Stem) {
	s.metrics.InFlightPipelines.Inc()
	s.pipelines.Add(1)

	go func() {
		defer s.pipelines.Done()
		defer s.metrics.InFlightPipelines.Dec()
		defer s.inFlight.Release(key)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Icon pipeline panicked", zap.String("assetId", assetID), zap.Any("panic", r))
			}
		}()

		s.runPipeline(s.rootCtx, assetID, stem)
	}()
}

// Wait blocks until every running background pipeline has finished.
func (s *IconService) Wait() {
	s.pipelines.Wait()
}

func (s *IconService) runPipeline(ctx context.Context, assetID string, stem domainRepo.Stem) {
	logger := s.logger.With(zap.String("assetId", assetID))

	img, stage, ok := s.fetchImage(ctx, assetID)

	if err := s.store.Remove(ctx, stem); err != nil {
		logger.Error("Failed to clear icon slot", zap.Error(err))
		return
	}

	if !ok {
		s.metrics.PipelineOutcomes.WithLabelValues(metrics.StageNone).Inc()
		if err := s.store.WriteNegativeMarker(ctx, stem); err != nil {
			logger.Error("Failed to write negative marker", zap.Error(err))
			return
		}
		logger.Info("No icon found, negative marker written")
		return
	}

	s.metrics.PipelineOutcomes.WithLabelValues(stage).Inc()
	if err := s.store.Write(ctx, stem, img.Extension, img.Data); err != nil {
		logger.Error("Failed to store icon", zap.Error(err))
		return
	}
	logger.Info("Icon cached", zap.String("stage", stage), zap.String("extension", img.Extension))
}

// fetchImage tries every source in order and returns the first image found.
func (s *IconService) fetchImage(ctx context.Context, assetID string) (entity.Image, string, bool) {
	if img, ok := s.images.WellKnown(ctx, assetID); ok {
		return img, metrics.StageWellKnown, true
	}

	ident, parsed := entity.ParseAssetID(assetID)

	if parsed && ident.Kind() == entity.ChainKindEVM {
		if _, hasToken := ident.TokenID(); hasToken {
			isPosition, err := s.metadata.IsNFTPositionContract(ctx, ident.ContractAssetID())
			if err != nil {
				s.logger.Warn("Failed to check nft position contract", zap.String("assetId", assetID), zap.Error(err))
			}
			if isPosition {
				if img, ok := s.nft.FetchPositionImage(ctx, ident); ok {
					return img, metrics.StageNFT, true
				}
			}
		}
	}

	if parsed {
		if img, ok := s.images.TokenIcon(ctx, ident.ChainID(), ident.Address()); ok {
			return img, metrics.StageCDN, true
		}
	}

	if img, ok := s.images.AggregatorImage(ctx, assetID); ok {
		return img, metrics.StageAggregator, true
	}

	return entity.Image{}, "", false
}

// Get serves the cached icon of assetID. Negative markers and unknown extensions are not found.
func (s *IconService) Get(ctx context.Context, assetID string, opts port.GetOptions) entity.GetResult {
	result := s.get(ctx, assetID, opts)
	s.metrics.GetResults.WithLabelValues(getStatusLabel(result.Status)).Inc()
	return result
}

func (s *IconService) get(ctx context.Context, assetID string, opts port.GetOptions) entity.GetResult {
	notFound := entity.GetResult{Status: entity.GetStatusNotFound}
	logger := s.logger.With(zap.String("assetId", assetID))

	stem, err := s.store.ResolvePath(ctx, assetID, opts.UseCollection)
	if err != nil {
		logger.Warn("Failed to resolve icon path", zap.Error(err))
		return notFound
	}

	entry, found, err := s.store.Find(ctx, s.store.CustomStem(assetID), stem)
	if err != nil {
		logger.Warn("Failed to look up icon", zap.Error(err))
		return notFound
	}
	if !found || entry.IsNegativeMarker() {
		return notFound
	}

	contentType, ok := entity.ContentTypeForExtension(entry.Extension)
	if !ok {
		logger.Warn("Refusing to serve icon with unknown extension", zap.String("path", entry.Path))
		return notFound
	}

	data, err := s.store.Read(ctx, entry)
	if err != nil {
		logger.Warn("Failed to read icon", zap.Error(err))
		return notFound
	}

	sum := md5.Sum(data)
	etag := hex.EncodeToString(sum[:])

	if match := strings.Trim(strings.TrimSpace(opts.MatchHeader), `"`); match != "" && match == etag {
		return entity.GetResult{Status: entity.GetStatusNotModified, ETag: etag}
	}

	return entity.GetResult{
		Status:      entity.GetStatusOK,
		Data:        data,
		ContentType: contentType,
		ETag:        etag,
	}
}

// Upload stores data as the custom icon of assetID, replacing any previous one.
func (s *IconService) Upload(ctx context.Context, assetID, contentType string, data []byte) error {
	if strings.TrimSpace(assetID) == "" {
		return fmt.Errorf("%w: asset id is required", apperrors.ErrInvalidInput)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: icon body is empty", apperrors.ErrInvalidInput)
	}
	ext, ok := entity.ExtensionForContentType(contentType)
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedMediaType, contentType)
	}

	stem := s.store.CustomStem(assetID)
	if err := s.store.Remove(ctx, stem); err != nil {
		return err
	}
	if err := s.store.Write(ctx, stem, ext, data); err != nil {
		return err
	}

	s.logger.Info("Custom icon uploaded", zap.String("assetId", assetID), zap.String("extension", ext))
	return nil
}

func getStatusLabel(status entity.GetStatus) string {
	switch status {
	case entity.GetStatusOK:
		return "ok"
	case entity.GetStatusNotModified:
		return "not_modified"
	default:
		return "not_found"
	}
}
