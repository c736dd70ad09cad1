package entity

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainKind defines the namespace an asset identifier belongs to.
type ChainKind int

// Known chain kinds.
const (
	ChainKindEVM ChainKind = iota + 1
	ChainKindSolana
)

// SolanaMainnetChainID is the chain id used for every Solana identifier.
const SolanaMainnetChainID uint64 = 101

const (
	evmNamespacePrefix = "eip155:"
	solanaNamespace    = "solana"

	solanaAddressMinLen = 32
	solanaAddressMaxLen = 44
)

// AssetIdentifier is the structured form of an asset id string.
// It is produced by ParseAssetID and never mutated afterwards.
type AssetIdentifier struct {
	kind       ChainKind
	chainID    uint64
	assetType  string
	evmAddress common.Address
	solAddress string
	tokenID    string
	hasTokenID bool
}

// ParseAssetID parses id into an AssetIdentifier.
// Supported forms are "eip155:<chainId>/<assetType>:<address>[/<tokenId>]"
// and "solana/<token|nft>:<address>". Anything else reports false.
func ParseAssetID(id string) (AssetIdentifier, bool) {
	parts := strings.Split(id, "/")
	if len(parts) < 2 {
		return AssetIdentifier{}, false
	}

	switch {
	case parts[0] == solanaNamespace:
		return parseSolana(parts)
	case strings.HasPrefix(parts[0], evmNamespacePrefix):
		return parseEVM(parts)
	default:
		return AssetIdentifier{}, false
	}
}

func parseEVM(parts []string) (AssetIdentifier, bool) {
	if len(parts) > 3 {
		return AssetIdentifier{}, false
	}

	chainID, err := strconv.ParseUint(strings.TrimPrefix(parts[0], evmNamespacePrefix), 10, 64)
	if err != nil {
		return AssetIdentifier{}, false
	}

	assetType, address, found := strings.Cut(parts[1], ":")
	if !found || assetType == "" || address == "" {
		return AssetIdentifier{}, false
	}
	// Only the checksummed spelling is accepted.
	if !common.IsHexAddress(address) || common.HexToAddress(address).Hex() != address {
		return AssetIdentifier{}, false
	}

	ident := AssetIdentifier{
		kind:       ChainKindEVM,
		chainID:    chainID,
		assetType:  assetType,
		evmAddress: common.HexToAddress(address),
	}
	if len(parts) == 3 {
		ident.tokenID = parts[2]
		ident.hasTokenID = true
	}
	return ident, true
}

func parseSolana(parts []string) (AssetIdentifier, bool) {
	if len(parts) != 2 {
		return AssetIdentifier{}, false
	}

	assetType, address, found := strings.Cut(parts[1], ":")
	if !found {
		return AssetIdentifier{}, false
	}
	if assetType != "token" && assetType != "nft" {
		return AssetIdentifier{}, false
	}
	if len(address) < solanaAddressMinLen || len(address) > solanaAddressMaxLen {
		return AssetIdentifier{}, false
	}

	return AssetIdentifier{
		kind:       ChainKindSolana,
		chainID:    SolanaMainnetChainID,
		assetType:  assetType,
		solAddress: address,
	}, true
}

// Kind returns the chain namespace of the identifier.
func (a AssetIdentifier) Kind() ChainKind { return a.kind }

// ChainID returns the numeric chain id.
func (a AssetIdentifier) ChainID() uint64 { return a.chainID }

// AssetType returns the asset type segment (e.g. "erc20", "erc721", "token").
func (a AssetIdentifier) AssetType() string { return a.assetType }

// EVMAddress returns the contract address. Zero for Solana identifiers.
func (a AssetIdentifier) EVMAddress() common.Address { return a.evmAddress }

// TokenID returns the NFT token id segment, if present.
func (a AssetIdentifier) TokenID() (string, bool) { return a.tokenID, a.hasTokenID }

// Address returns the address in its canonical textual form.
func (a AssetIdentifier) Address() string {
	if a.kind == ChainKindSolana {
		return a.solAddress
	}
	return a.evmAddress.Hex()
}

// ContractAssetID returns the identifier with the token id segment dropped.
func (a AssetIdentifier) ContractAssetID() string {
	switch a.kind {
	case ChainKindEVM:
		return evmNamespacePrefix + strconv.FormatUint(a.chainID, 10) + "/" + a.assetType + ":" + a.evmAddress.Hex()
	case ChainKindSolana:
		return solanaNamespace + "/" + a.assetType + ":" + a.solAddress
	default:
		return ""
	}
}

// String returns the canonical serialization. Parsing it yields an equal identifier.
func (a AssetIdentifier) String() string {
	s := a.ContractAssetID()
	if a.hasTokenID {
		s += "/" + a.tokenID
	}
	return s
}
