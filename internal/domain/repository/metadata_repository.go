package repository

import (
	"context"

	"icon-resolver/internal/domain/entity"
)

//go:generate mockgen -destination=mocks/mock_metadata_repository.go -package=mocks . MetadataRepository

// MetadataRepository defines the read-only queries the icon engine needs from the asset metadata database.
type MetadataRepository interface {
	// ResolveCollectionMainAsset returns the canonical asset of the collection assetID belongs to.
	ResolveCollectionMainAsset(ctx context.Context, assetID string) (string, bool, error)

	// ResolvePriceAggregatorID returns the price-aggregator coin id of an asset.
	ResolvePriceAggregatorID(ctx context.Context, assetID string) (string, bool, error)

	// IsNFTPositionContract reports whether assetID names a known NFT position manager contract.
	IsNFTPositionContract(ctx context.Context, assetID string) (bool, error)

	// ListActiveRPCNodes returns the usable RPC nodes of a blockchain ordered by name.
	ListActiveRPCNodes(ctx context.Context, blockchain entity.Blockchain) ([]entity.RPCNode, error)
}
