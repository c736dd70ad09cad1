package port

import (
	"context"

	"icon-resolver/internal/domain/entity"
)

// CheckOptions controls an icon availability check.
type CheckOptions struct {
	// ForceRefresh drops a cached default icon or negative marker and fetches again.
	ForceRefresh bool
	// UseCollection caches the icon under the asset's collection main asset.
	UseCollection bool
}

// GetOptions controls serving a cached icon.
type GetOptions struct {
	// MatchHeader is the client's If-Match value; empty when absent.
	MatchHeader string
	// UseCollection reads the icon cached under the asset's collection main asset.
	UseCollection bool
}

// IconService defines the icon resolution and caching operations exposed to the HTTP layer.
type IconService interface {
	// Check reports whether an icon is cached, starting a background fetch on a miss.
	Check(ctx context.Context, assetID string, opts CheckOptions) (entity.CheckStatus, error)

	// Get serves a cached icon. It never contacts a remote source.
	Get(ctx context.Context, assetID string, opts GetOptions) entity.GetResult

	// Upload stores an operator supplied icon that overrides any fetched one.
	Upload(ctx context.Context, assetID, contentType string, data []byte) error
}

// NodeStatusService defines probing of the configured rpc nodes of a chain.
type NodeStatusService interface {
	// GetNodeStatuses probes every node of blockchain.
	GetNodeStatuses(ctx context.Context, blockchain entity.Blockchain) ([]entity.RPCDetail, error)
}
