package rpc

import (
	"context"
	"sync"

	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	domainService "icon-resolver/internal/domain/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compile-time check
var _ domainService.NodeDirectory = (*PoolRegistry)(nil)

// PoolRegistry lazily creates one ConnectionPool per blockchain.
type PoolRegistry struct {
	metadata   domainRepo.MetadataRepository
	dial       DialFunc
	maxWorkers int
	logger     *zap.Logger

	mu    sync.RWMutex
	pools map[entity.Blockchain]*ConnectionPool
}

// NewPoolRegistry creates an empty registry. maxWorkers bounds concurrent refreshes in InitializeAll.
func NewPoolRegistry(
	metadata domainRepo.MetadataRepository,
	dial DialFunc,
	maxWorkers int,
	logger *zap.Logger,
) *PoolRegistry {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &PoolRegistry{
		metadata:   metadata,
		dial:       dial,
		maxWorkers: maxWorkers,
		logger:     logger,
		pools:      make(map[entity.Blockchain]*ConnectionPool),
	}
}

// InitializeAll ensures a pool exists for every supported EVM chain and refreshes each one.
// Refresh failures are logged and leave that pool empty.
func (r *PoolRegistry) InitializeAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxWorkers)

	for _, blockchain := range entity.SupportedEVMChains {
		pool := r.ensure(blockchain)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_ = pool.RefreshNodes(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Named("PoolRegistry").Info("Initialized rpc pools", zap.Int("chains", len(entity.SupportedEVMChains)))
	return nil
}

// GetOrInit returns the pool of blockchain, creating and refreshing it on first use.
// A concurrent caller may refresh a pool that loses the insert; the first inserted pool wins.
func (r *PoolRegistry) GetOrInit(ctx context.Context, blockchain entity.Blockchain) *ConnectionPool {
	if pool, ok := r.Get(blockchain); ok {
		return pool
	}

	pool := NewConnectionPool(blockchain, r.metadata, r.dial, r.logger)
	_ = pool.RefreshNodes(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.pools[blockchain]; ok {
		return existing
	}
	r.pools[blockchain] = pool
	return pool
}

// Get returns the pool of blockchain if one was created.
func (r *PoolRegistry) Get(blockchain entity.Blockchain) (*ConnectionPool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[blockchain]
	return pool, ok
}

// Close closes the handles of every pool.
func (r *PoolRegistry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pool := range r.pools {
		pool.Close()
	}
}

func (r *PoolRegistry) ensure(blockchain entity.Blockchain) *ConnectionPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[blockchain]; ok {
		return pool
	}
	pool := NewConnectionPool(blockchain, r.metadata, r.dial, r.logger)
	r.pools[blockchain] = pool
	return pool
}

// NodesOf returns the current node list of blockchain, initializing its pool if needed.
func (r *PoolRegistry) NodesOf(ctx context.Context, blockchain entity.Blockchain) []entity.RPCNode {
	return r.GetOrInit(ctx, blockchain).Nodes()
}
