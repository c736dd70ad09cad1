package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"icon-resolver/internal/application/port"
	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	domainService "icon-resolver/internal/domain/service"

	"go.uber.org/zap"
)

// Compile-time check
var _ port.NodeStatusService = (*nodeStatusService)(nil)

// nodeStatusService probes the rpc nodes known to the pool registry.
type nodeStatusService struct {
	nodes      domainService.NodeDirectory
	rpcChecker domainService.RPCChecker
	timeout    time.Duration
	maxWorkers int
	logger     *zap.Logger
}

// NewNodeStatusService creates a node status service. Each probe is bounded by timeout.
func NewNodeStatusService(
	nodes domainService.NodeDirectory,
	rpcChecker domainService.RPCChecker,
	timeout time.Duration,
	maxWorkers int,
	logger *zap.Logger,
) port.NodeStatusService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &nodeStatusService{
		nodes:      nodes,
		rpcChecker: rpcChecker,
		timeout:    timeout,
		maxWorkers: maxWorkers,
		logger:     logger.Named("NodeStatusService"),
	}
}

// GetNodeStatuses probes every configured node of blockchain concurrently.
func (s *nodeStatusService) GetNodeStatuses(ctx context.Context, blockchain entity.Blockchain) ([]entity.RPCDetail, error) {
	nodes := s.nodes.NodesOf(ctx, blockchain)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoRPCsAvailable, blockchain)
	}

	details := make([]entity.RPCDetail, len(nodes))

	numWorkers := s.maxWorkers
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if len(nodes) < numWorkers {
		numWorkers = len(nodes)
	}

	jobs := make(chan int, len(nodes))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				details[i] = s.probe(ctx, nodes[i])
			}
		}()
	}

	for i := range nodes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	s.logger.Debug("Probed rpc nodes", zap.String("blockchain", blockchain.String()), zap.Int("count", len(details)))
	return details, nil
}

func (s *nodeStatusService) probe(ctx context.Context, node entity.RPCNode) entity.RPCDetail {
	detail := entity.RPCDetail{Name: node.Name, URL: entity.RPCURL(node.Endpoint)}
	notWorking := false

	rpcURL, err := entity.NewRPCURL(node.Endpoint)
	if err != nil {
		detail.Protocol = entity.ProtocolUnknown
		detail.IsWorking = &notWorking
		s.logger.Warn("Node has an invalid endpoint", zap.String("node", node.Name), zap.Error(err))
		return detail
	}
	detail.Protocol = rpcURL.Protocol()

	checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	isWorking, latency, err := s.rpcChecker.CheckRPC(checkCtx, rpcURL)
	if err != nil {
		s.logger.Debug("Node probe failed", zap.String("node", node.Name), zap.Error(err))
		detail.IsWorking = &notWorking
		return detail
	}

	detail.IsWorking = &isWorking
	if isWorking {
		latencyMs := latency.Milliseconds()
		detail.LatencyMs = &latencyMs
	}
	return detail
}
