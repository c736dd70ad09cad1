package memory

import (
	"context"
	"fmt"

	"icon-resolver/internal/config"
	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.MetadataRepository = (*CachedMetadataRepository)(nil)

// Cache keys
const (
	collectionKeyPrefix  = "collection_main_asset_"
	aggregatorKeyPrefix  = "aggregator_id_"
	nftPositionKeyPrefix = "nft_position_"
)

// lookup is a memoized (value, found) pair.
type lookup struct {
	value string
	found bool
}

// CachedMetadataRepository memoizes the per-asset lookups of a MetadataRepository using go-cache.
// RPC node lists are not memoized; pools refresh them explicitly.
type CachedMetadataRepository struct {
	next   domainRepo.MetadataRepository
	cache  *cache.Cache
	logger *zap.Logger
}

// NewCachedMetadataRepository wraps next with an in-memory cache.
func NewCachedMetadataRepository(
	next domainRepo.MetadataRepository,
	cfg config.MetadataConfig,
	logger *zap.Logger,
) *CachedMetadataRepository {
	defaultExpiration := cfg.GetDefaultExpiration()
	cleanupInterval := cfg.GetCleanupInterval()

	c := cache.New(defaultExpiration, cleanupInterval)
	logger.Info(
		"Initialized go-cache for metadata lookups",
		zap.Duration("defaultExpiration", defaultExpiration),
		zap.Duration("cleanupInterval", cleanupInterval),
	)

	return &CachedMetadataRepository{
		next:   next,
		cache:  c,
		logger: logger.Named("MemoryMetadataCache"),
	}
}

// ResolveCollectionMainAsset returns the memoized collection main asset of assetID.
func (r *CachedMetadataRepository) ResolveCollectionMainAsset(ctx context.Context, assetID string) (string, bool, error) {
	return r.memoized(collectionKeyPrefix+assetID, func() (string, bool, error) {
		return r.next.ResolveCollectionMainAsset(ctx, assetID)
	})
}

// ResolvePriceAggregatorID returns the memoized price-aggregator id of assetID.
func (r *CachedMetadataRepository) ResolvePriceAggregatorID(ctx context.Context, assetID string) (string, bool, error) {
	return r.memoized(aggregatorKeyPrefix+assetID, func() (string, bool, error) {
		return r.next.ResolvePriceAggregatorID(ctx, assetID)
	})
}

// IsNFTPositionContract returns the memoized NFT position flag of assetID.
func (r *CachedMetadataRepository) IsNFTPositionContract(ctx context.Context, assetID string) (bool, error) {
	_, found, err := r.memoized(nftPositionKeyPrefix+assetID, func() (string, bool, error) {
		ok, err := r.next.IsNFTPositionContract(ctx, assetID)
		return "", ok, err
	})
	return found, err
}

// ListActiveRPCNodes always reads through.
func (r *CachedMetadataRepository) ListActiveRPCNodes(ctx context.Context, blockchain entity.Blockchain) ([]entity.RPCNode, error) {
	return r.next.ListActiveRPCNodes(ctx, blockchain)
}

// memoized returns the cached lookup under key or computes and stores it. Errors are not cached.
func (r *CachedMetadataRepository) memoized(key string, load func() (string, bool, error)) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		if l, ok := x.(lookup); ok {
			r.logger.Debug("Memory cache hit", zap.String("key", key))
			return l.value, l.found, nil
		}
		r.logger.Warn(
			"Memory cache data type mismatch for key",
			zap.String("key", key), zap.Any("type", fmt.Sprintf("%T", x)),
		)
	}
	r.logger.Debug("Memory cache miss", zap.String("key", key))

	value, found, err := load()
	if err != nil {
		return "", false, err
	}
	r.cache.Set(key, lookup{value: value, found: found}, cache.DefaultExpiration)
	return value, found, nil
}
