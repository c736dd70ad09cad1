package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	domainService "icon-resolver/internal/domain/service"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.NFTImageSource = (*NFTMetadataFetcher)(nil)

const positionManagerABI = `[{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"}]`

const (
	tokenURIMethod = "tokenURI"

	jsonDataURIPrefix = "data:application/json;base64,"
	svgDataURIPrefix  = "data:image/svg+xml;base64,"
)

// fatalCallPatterns mark errors that prove the contract does not implement tokenURI.
var fatalCallPatterns = []string{
	"function selector was not recognized",
	"invalid signature",
	"no contract code",
	"unmarshal an empty string",
	"unmarshall an empty string",
}

// PositionABI is the parsed position manager ABI.
var PositionABI = mustParseABI(positionManagerABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid position manager abi: %v", err))
	}
	return parsed
}

type positionMetadata struct {
	Image string `json:"image"`
}

// NFTMetadataFetcher reads the SVG image of an NFT position from the position manager's tokenURI.
type NFTMetadataFetcher struct {
	registry    *PoolRegistry
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewNFTMetadataFetcher creates a fetcher that resolves pools through registry.
func NewNFTMetadataFetcher(registry *PoolRegistry, callTimeout time.Duration, logger *zap.Logger) *NFTMetadataFetcher {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &NFTMetadataFetcher{
		registry:    registry,
		callTimeout: callTimeout,
		logger:      logger.Named("NFTMetadataFetcher"),
	}
}

// FetchPositionImage resolves the pool of ident's chain and fetches the position image.
func (f *NFTMetadataFetcher) FetchPositionImage(ctx context.Context, ident entity.AssetIdentifier) (entity.Image, bool) {
	tokenID, ok := ident.TokenID()
	if !ok || ident.Kind() != entity.ChainKindEVM {
		return entity.Image{}, false
	}

	blockchain, ok := entity.BlockchainForChainID(ident.ChainID())
	if !ok {
		f.logger.Debug("No rpc pool for chain",
			zap.Uint64("chainId", ident.ChainID()), zap.Error(domain.ErrUnsupportedChain),
		)
		return entity.Image{}, false
	}

	pool := f.registry.GetOrInit(ctx, blockchain)
	return f.Fetch(ctx, ident.ChainID(), tokenID, ident.EVMAddress(), pool)
}

// Fetch calls tokenURI(tokenID) on contract through the nodes of pool in order.
// A fatal contract error or a malformed response stops the iteration; other errors move to the next node.
func (f *NFTMetadataFetcher) Fetch(
	ctx context.Context,
	chainID uint64,
	tokenID string,
	contract common.Address,
	pool *ConnectionPool,
) (entity.Image, bool) {
	id, ok := parseUint256(tokenID)
	if !ok {
		f.logger.Debug("Token id is not a uint256", zap.String("tokenId", tokenID))
		return entity.Image{}, false
	}

	input, err := PositionABI.Pack(tokenURIMethod, id)
	if err != nil {
		f.logger.Error("Failed to pack tokenURI call", zap.Error(err))
		return entity.Image{}, false
	}
	msg := ethereum.CallMsg{To: &contract, Data: input}

	logger := f.logger.With(
		zap.Uint64("chainId", chainID),
		zap.String("contract", contract.Hex()),
		zap.String("tokenId", tokenID),
	)

	nodes := pool.Nodes()
	if len(nodes) == 0 {
		logger.Debug("Skipping on-chain fetch", zap.Error(domain.ErrNoRPCsAvailable))
		return entity.Image{}, false
	}

	for _, node := range nodes {
		conn, err := pool.GetOrConnect(ctx, node)
		if err != nil {
			logger.Warn("Failed to connect to rpc node", zap.String("node", node.Name), zap.Error(err))
			continue
		}

		uri, err := f.callTokenURI(ctx, conn, msg)
		if err != nil {
			if errors.Is(err, domain.ErrFatalContract) {
				logger.Info("Contract cannot serve position metadata", zap.String("node", node.Name), zap.Error(err))
				return entity.Image{}, false
			}
			logger.Warn("tokenURI call failed, trying next node", zap.String("node", node.Name), zap.Error(err))
			continue
		}

		svg, err := decodePositionImage(uri)
		if err != nil {
			logger.Warn("Malformed position metadata", zap.String("node", node.Name), zap.Error(err))
			return entity.Image{}, false
		}
		return entity.Image{Data: svg, Extension: "svg"}, true
	}

	logger.Debug("All rpc nodes failed for position metadata", zap.Int("nodes", len(nodes)))
	return entity.Image{}, false
}

func (f *NFTMetadataFetcher) callTokenURI(ctx context.Context, conn ContractCaller, msg ethereum.CallMsg) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	out, err := conn.CallContract(callCtx, msg, nil)
	if err != nil {
		return "", classifyCallError(err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: empty return data", domain.ErrFatalContract)
	}

	values, err := PositionABI.Unpack(tokenURIMethod, out)
	if err != nil {
		return "", classifyCallError(err)
	}
	if len(values) != 1 {
		return "", fmt.Errorf("%w: unexpected tokenURI outputs", domain.ErrFatalContract)
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: tokenURI returned %T", domain.ErrFatalContract, values[0])
	}
	return uri, nil
}

func classifyCallError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalCallPatterns {
		if strings.Contains(msg, pattern) {
			return fmt.Errorf("%w: %v", domain.ErrFatalContract, err)
		}
	}
	return err
}

// decodePositionImage extracts the SVG bytes from a base64 JSON data URI.
func decodePositionImage(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, jsonDataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("token uri is not a base64 json data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode token uri payload: %w", err)
	}

	var meta positionMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse token metadata: %w", err)
	}

	image, ok := strings.CutPrefix(meta.Image, svgDataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("metadata image is not a base64 svg data uri")
	}
	svg, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, fmt.Errorf("decode svg payload: %w", err)
	}
	return svg, nil
}

// parseUint256 accepts plain decimal digits only, no sign or prefix.
func parseUint256(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, false
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, false
	}
	return n, true
}
