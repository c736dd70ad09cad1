package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	"icon-resolver/internal/pkg/apperrors"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.MetadataRepository = (*MetadataRepository)(nil)

// NFTPositionProtocol is the evm_tokens.protocol value of Uniswap V3 position managers.
const NFTPositionProtocol = "UNI-V3"

const (
	collectionMainAssetQuery = `SELECT A.asset FROM multiasset_mappings AS A
JOIN multiasset_mappings AS B ON A.collection_id = B.collection_id
WHERE B.asset = ? ORDER BY A.asset LIMIT 1`

	aggregatorIDQuery = `SELECT coingecko FROM common_asset_details WHERE identifier = ?`

	nftPositionQuery = `SELECT COUNT(*) FROM evm_tokens WHERE identifier = ? AND protocol = ?`

	activeRPCNodesQuery = `SELECT name, endpoint FROM rpc_nodes
WHERE blockchain = ? AND active = 1 AND name NOT LIKE '%etherscan%'
AND (CAST(weight AS REAL) != 0 OR owned = 1)
ORDER BY name`
)

// MetadataRepository implements domainRepo.MetadataRepository over the global asset database.
type MetadataRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the metadata database at path read-only.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open metadata db %s: %v", apperrors.ErrConfiguration, path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping metadata db %s: %v", apperrors.ErrConfiguration, path, err)
	}
	return db, nil
}

// NewMetadataRepository creates a repository on an open database handle.
func NewMetadataRepository(db *sql.DB, logger *zap.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:     db,
		logger: logger.Named("SQLiteMetadataRepository"),
	}
}

// ResolveCollectionMainAsset returns the alphabetically first asset of the collection assetID is in.
func (r *MetadataRepository) ResolveCollectionMainAsset(ctx context.Context, assetID string) (string, bool, error) {
	var main string
	err := r.db.QueryRowContext(ctx, collectionMainAssetQuery, assetID).Scan(&main)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: collection lookup for %s: %v", apperrors.ErrInternal, assetID, err)
	}
	return main, true, nil
}

// ResolvePriceAggregatorID returns the coingecko id of assetID. Empty ids count as absent.
func (r *MetadataRepository) ResolvePriceAggregatorID(ctx context.Context, assetID string) (string, bool, error) {
	var id sql.NullString
	err := r.db.QueryRowContext(ctx, aggregatorIDQuery, assetID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: aggregator id lookup for %s: %v", apperrors.ErrInternal, assetID, err)
	}
	if !id.Valid || id.String == "" {
		return "", false, nil
	}
	return id.String, true, nil
}

// IsNFTPositionContract reports whether assetID is a Uniswap V3 position manager token.
func (r *MetadataRepository) IsNFTPositionContract(ctx context.Context, assetID string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, nftPositionQuery, assetID, NFTPositionProtocol).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: nft position lookup for %s: %v", apperrors.ErrInternal, assetID, err)
	}
	return count > 0, nil
}

// ListActiveRPCNodes returns the usable nodes of blockchain ordered by name.
func (r *MetadataRepository) ListActiveRPCNodes(ctx context.Context, blockchain entity.Blockchain) ([]entity.RPCNode, error) {
	rows, err := r.db.QueryContext(ctx, activeRPCNodesQuery, blockchain.String())
	if err != nil {
		return nil, fmt.Errorf("%w: list rpc nodes for %s: %v", apperrors.ErrInternal, blockchain, err)
	}
	defer rows.Close()

	var nodes []entity.RPCNode
	for rows.Next() {
		node := entity.RPCNode{Blockchain: blockchain}
		if err := rows.Scan(&node.Name, &node.Endpoint); err != nil {
			return nil, fmt.Errorf("%w: scan rpc node for %s: %v", apperrors.ErrInternal, blockchain, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rpc nodes for %s: %v", apperrors.ErrInternal, blockchain, err)
	}

	r.logger.Debug("Loaded rpc nodes", zap.String("blockchain", blockchain.String()), zap.Int("count", len(nodes)))
	return nodes, nil
}
