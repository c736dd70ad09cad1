package service

import (
	"context"
	"time"

	"icon-resolver/internal/domain/entity"
)

// RPCChecker defines the interface for checking RPC endpoint status.
type RPCChecker interface {
	CheckRPC(ctx context.Context, rpcURL entity.RPCURL) (bool, time.Duration, error)
}

// NodeDirectory lists the rpc nodes currently configured for a blockchain.
type NodeDirectory interface {
	NodesOf(ctx context.Context, blockchain entity.Blockchain) []entity.RPCNode
}
