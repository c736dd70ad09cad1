package rpc

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	"icon-resolver/internal/pkg/apperrors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ContractCaller is the part of a provider handle the fetchers use.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Compile-time check
var _ ContractCaller = (*ethclient.Client)(nil)

// DialFunc opens a provider handle for an endpoint.
type DialFunc func(ctx context.Context, endpoint string) (ContractCaller, error)

// DialEthClient dials endpoint with go-ethereum's ethclient.
func DialEthClient(ctx context.Context, endpoint string) (ContractCaller, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// ConnectionPool holds the configured nodes of one blockchain and the handles opened to them.
type ConnectionPool struct {
	blockchain entity.Blockchain
	metadata   domainRepo.MetadataRepository
	dial       DialFunc
	logger     *zap.Logger

	mu    sync.RWMutex
	nodes []entity.RPCNode
	conns map[entity.RPCNode]ContractCaller
}

// NewConnectionPool creates an empty pool. Call RefreshNodes to load its node list.
func NewConnectionPool(
	blockchain entity.Blockchain,
	metadata domainRepo.MetadataRepository,
	dial DialFunc,
	logger *zap.Logger,
) *ConnectionPool {
	return &ConnectionPool{
		blockchain: blockchain,
		metadata:   metadata,
		dial:       dial,
		logger:     logger.Named("ConnectionPool").With(zap.String("blockchain", blockchain.String())),
		conns:      make(map[entity.RPCNode]ContractCaller),
	}
}

// Blockchain returns the chain the pool serves.
func (p *ConnectionPool) Blockchain() entity.Blockchain {
	return p.blockchain
}

// RefreshNodes replaces the node list with the active nodes from the metadata database.
// On failure the previous list is kept. Open connections are not touched.
func (p *ConnectionPool) RefreshNodes(ctx context.Context) error {
	nodes, err := p.metadata.ListActiveRPCNodes(ctx, p.blockchain)
	if err != nil {
		p.logger.Error("Failed to refresh rpc nodes, keeping previous list", zap.Error(err))
		return err
	}

	p.mu.Lock()
	p.nodes = nodes
	p.mu.Unlock()

	p.logger.Info("Refreshed rpc nodes", zap.Int("count", len(nodes)))
	return nil
}

// Nodes returns a snapshot of the current node list.
func (p *ConnectionPool) Nodes() []entity.RPCNode {
	p.mu.RLock()
	defer p.mu.RUnlock()

	nodes := make([]entity.RPCNode, len(p.nodes))
	copy(nodes, p.nodes)
	return nodes
}

// GetOrConnect returns the cached handle of node or dials a new one.
// Concurrent first callers may each dial; the last stored handle wins.
func (p *ConnectionPool) GetOrConnect(ctx context.Context, node entity.RPCNode) (ContractCaller, error) {
	p.mu.RLock()
	conn, ok := p.conns[node]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	endpoint, err := entity.NewRPCURL(node.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: %v", apperrors.ErrConfiguration, node.Name, err)
	}

	conn, err = p.dial(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("%w: dial node %s: %v", apperrors.ErrExternalServiceFailure, node.Name, err)
	}

	p.mu.Lock()
	p.conns[node] = conn
	p.mu.Unlock()

	p.logger.Debug("Connected to rpc node", zap.String("node", node.Name))
	return conn, nil
}

// Close closes every open handle.
func (p *ConnectionPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for node, conn := range p.conns {
		conn.Close()
		delete(p.conns, node)
	}
}
