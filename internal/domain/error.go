package domain

import "errors"

var (
	// ErrFatalContract means the contract response proves it is not the expected kind of contract.
	// Retrying the same call on another node cannot help.
	ErrFatalContract = errors.New("contract is not an NFT position manager")

	// ErrStorage means reading or writing the icon cache on disk failed.
	ErrStorage = errors.New("icon storage failure")

	// ErrUnsupportedChain means no RPC pool can be built for the requested chain.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrNoImage means a source answered but had no image for the asset.
	ErrNoImage = errors.New("no image available")

	// ErrNoRPCsAvailable means there are no configured RPC nodes for the chain.
	ErrNoRPCsAvailable = errors.New("no RPCs available for the chain")
)
