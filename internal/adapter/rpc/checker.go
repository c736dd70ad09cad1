package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"icon-resolver/internal/domain/entity"
	domainService "icon-resolver/internal/domain/service"
	"icon-resolver/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.RPCChecker = (*Checker)(nil)

// Checker probes rpc nodes with eth_blockNumber over HTTP(S) or WS(S).
type Checker struct {
	client  *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewChecker creates a probe whose calls are bounded by timeout.
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		client: &fasthttp.Client{
			ReadTimeout: timeout,
		},
		timeout: timeout,
		logger:  logger.Named("RPCChecker"),
	}
}

// blockNumberPayload is the JSON-RPC request used to probe a node.
var blockNumberPayload = []byte(`{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":1}`)

type jsonRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CheckRPC probes rpcURL and reports whether it answered with a block number.
func (c *Checker) CheckRPC(ctx context.Context, rpcURL entity.RPCURL) (bool, time.Duration, error) {
	start := time.Now()

	switch rpcURL.Protocol() {
	case entity.ProtocolWS, entity.ProtocolWSS:
		return c.checkWS(ctx, rpcURL.String(), start)
	case entity.ProtocolHTTP, entity.ProtocolHTTPS:
		return c.checkHTTP(ctx, rpcURL.String(), start)
	default:
		c.logger.Warn("Skipping probe for unsupported protocol", zap.String("url", rpcURL.String()))
		return false, 0, fmt.Errorf("%w: unsupported protocol in URL %s", apperrors.ErrInvalidInput, rpcURL)
	}
}

// effectiveTimeout clamps the probe timeout to the context deadline.
func (c *Checker) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (c *Checker) checkHTTP(ctx context.Context, rpcURL string, start time.Time) (bool, time.Duration, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(blockNumberPayload)

	timeout := c.effectiveTimeout(ctx)
	if timeout <= 0 {
		return false, 0, fmt.Errorf("%w: no time left to probe %s", apperrors.ErrTimeout, rpcURL)
	}

	err := c.client.DoTimeout(req, resp, timeout)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			c.logger.Debug("HTTP probe timed out", zap.String("url", rpcURL), zap.Duration("timeout", timeout))
			return false, latency, fmt.Errorf("%w: http probe of %s timed out after %v",
				apperrors.ErrTimeout, rpcURL, timeout,
			)
		}
		c.logger.Debug("HTTP probe failed", zap.String("url", rpcURL), zap.Error(err))
		return false, latency, fmt.Errorf("%w: http probe of %s failed: %v",
			apperrors.ErrExternalServiceFailure, rpcURL, err,
		)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("HTTP probe returned non-OK status",
			zap.String("url", rpcURL), zap.Int("statusCode", resp.StatusCode()),
		)
		return false, latency, fmt.Errorf("%w: rpc %s returned http status %d",
			apperrors.ErrExternalServiceFailure, rpcURL, resp.StatusCode(),
		)
	}

	ok, err := c.validateResponse(rpcURL, resp.Body())
	return ok, latency, err
}

func (c *Checker) checkWS(ctx context.Context, rpcURL string, start time.Time) (bool, time.Duration, error) {
	timeout := c.effectiveTimeout(ctx)
	if timeout <= 0 {
		return false, 0, fmt.Errorf("%w: no time left to probe %s", apperrors.ErrTimeout, rpcURL)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, _, err := dialer.DialContext(ctx, rpcURL, nil)
	if err != nil {
		c.logger.Debug("WS dial failed", zap.String("url", rpcURL), zap.Error(err))
		return false, time.Since(start), c.wsError(ctx, "dial", rpcURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, blockNumberPayload); err != nil {
		c.logger.Debug("WS write failed", zap.String("url", rpcURL), zap.Error(err))
		return false, time.Since(start), c.wsError(ctx, "write", rpcURL, err)
	}

	_, message, err := conn.ReadMessage()
	latency := time.Since(start)
	if err != nil {
		c.logger.Debug("WS read failed", zap.String("url", rpcURL), zap.Error(err))
		return false, latency, c.wsError(ctx, "read", rpcURL, err)
	}

	ok, err := c.validateResponse(rpcURL, message)
	return ok, latency, err
}

func (c *Checker) wsError(ctx context.Context, op, rpcURL string, err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: ws %s on %s timed out: %v", apperrors.ErrTimeout, op, rpcURL, err)
	}
	return fmt.Errorf("%w: ws %s on %s failed: %v", apperrors.ErrExternalServiceFailure, op, rpcURL, err)
}

// validateResponse checks that body is a successful JSON-RPC response.
func (c *Checker) validateResponse(rpcURL string, body []byte) (bool, error) {
	var resp jsonRPCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug("Probe returned invalid JSON", zap.String("url", rpcURL), zap.ByteString("body", body))
		return false, fmt.Errorf("%w: rpc %s returned invalid JSON: %v",
			apperrors.ErrExternalServiceFailure, rpcURL, err,
		)
	}

	if resp.Error != nil {
		c.logger.Debug("Probe returned JSON-RPC error",
			zap.String("url", rpcURL),
			zap.Int("errorCode", resp.Error.Code),
			zap.String("errorMessage", resp.Error.Message),
		)
		return false, fmt.Errorf("%w: rpc %s returned json-rpc error: %d %s",
			apperrors.ErrExternalServiceFailure, rpcURL, resp.Error.Code, resp.Error.Message,
		)
	}

	if resp.Jsonrpc != "2.0" || resp.Result == nil {
		return false, fmt.Errorf("%w: rpc %s returned invalid JSON-RPC structure",
			apperrors.ErrExternalServiceFailure, rpcURL,
		)
	}

	return true, nil
}
