package service

import (
	"context"

	"icon-resolver/internal/domain/entity"
)

// ImageSource defines the remote sources of the fallback pipeline.
// Every method reports false when the source has no image; failures are logged by the implementation.
type ImageSource interface {
	// WellKnown fetches the icon of an asset listed in the hardcoded well-known table.
	WellKnown(ctx context.Context, assetID string) (entity.Image, bool)

	// TokenIcon fetches a token logo from the CDN by chain id and address.
	TokenIcon(ctx context.Context, chainID uint64, address string) (entity.Image, bool)

	// AggregatorImage fetches the small coin image from the price aggregator.
	AggregatorImage(ctx context.Context, assetID string) (entity.Image, bool)
}

// NFTImageSource fetches the image embedded in an NFT position's on-chain metadata.
type NFTImageSource interface {
	FetchPositionImage(ctx context.Context, ident entity.AssetIdentifier) (entity.Image, bool)
}
