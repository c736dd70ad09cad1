package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"icon-resolver/internal/application/port"
	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	"icon-resolver/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	assetIDParam       = "asset_id"
	forceRefreshParam  = "force_refresh"
	useCollectionParam = "use_collection_icon"
)

type checkResponse struct {
	Result entity.CheckStatus `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Result bool `json:"result"`
}

// IconHandler serves the icon check, get, refresh and upload endpoints.
type IconHandler struct {
	svc    port.IconService
	logger *zap.Logger
}

// NewIconHandler creates a new icon handler.
func NewIconHandler(svc port.IconService, logger *zap.Logger) *IconHandler {
	return &IconHandler{
		svc:    svc,
		logger: logger.Named("IconHandler"),
	}
}

// Check reports whether an icon is cached and starts a fetch when it is not.
func (h *IconHandler) Check(ctx *fasthttp.RequestCtx) {
	h.check(ctx, false)
}

// Refresh drops the cached icon and fetches it again.
func (h *IconHandler) Refresh(ctx *fasthttp.RequestCtx) {
	h.check(ctx, true)
}

func (h *IconHandler) check(ctx *fasthttp.RequestCtx, forceRefresh bool) {
	assetID, ok := requireAssetID(ctx)
	if !ok {
		return
	}

	force, err := boolArg(ctx, forceRefreshParam)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err)
		return
	}
	useCollection, err := boolArg(ctx, useCollectionParam)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err)
		return
	}

	status, err := h.svc.Check(ctx, assetID, port.CheckOptions{
		ForceRefresh:  forceRefresh || force,
		UseCollection: useCollection,
	})
	if err != nil {
		h.logger.Error("Icon check failed", zap.String("assetId", assetID), zap.Error(err))
		writeJSON(ctx, fasthttp.StatusInternalServerError, checkResponse{Result: entity.CheckStatusError}, h.logger)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, checkResponse{Result: status}, h.logger)
}

// Get serves the cached icon bytes, honoring If-Match.
func (h *IconHandler) Get(ctx *fasthttp.RequestCtx) {
	assetID, ok := requireAssetID(ctx)
	if !ok {
		return
	}
	useCollection, err := boolArg(ctx, useCollectionParam)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err)
		return
	}

	res := h.svc.Get(ctx, assetID, port.GetOptions{
		MatchHeader:   string(ctx.Request.Header.Peek(fasthttp.HeaderIfMatch)),
		UseCollection: useCollection,
	})

	switch res.Status {
	case entity.GetStatusOK:
		ctx.Response.Header.Set(fasthttp.HeaderETag, res.ETag)
		ctx.SetContentType(res.ContentType)
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(res.Data)
	case entity.GetStatusNotModified:
		ctx.Response.Header.Set(fasthttp.HeaderETag, res.ETag)
		ctx.SetStatusCode(fasthttp.StatusNotModified)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

// Upload stores the request body as the custom icon of the asset.
func (h *IconHandler) Upload(ctx *fasthttp.RequestCtx) {
	assetID, ok := requireAssetID(ctx)
	if !ok {
		return
	}

	contentType := string(ctx.Request.Header.ContentType())
	err := h.svc.Upload(ctx, assetID, contentType, ctx.PostBody())
	switch {
	case err == nil:
		writeJSON(ctx, fasthttp.StatusOK, uploadResponse{Result: true}, h.logger)
	case errors.Is(err, apperrors.ErrUnsupportedMediaType):
		writeError(ctx, fasthttp.StatusUnsupportedMediaType, err)
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeError(ctx, fasthttp.StatusBadRequest, err)
	default:
		h.logger.Error("Icon upload failed", zap.String("assetId", assetID), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, errors.New("failed to store icon"))
	}
}

// NodeHandler serves the rpc node status endpoint.
type NodeHandler struct {
	svc    port.NodeStatusService
	logger *zap.Logger
}

// NewNodeHandler creates a new node status handler.
func NewNodeHandler(svc port.NodeStatusService, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		svc:    svc,
		logger: logger.Named("NodeHandler"),
	}
}

// GetNodes probes the configured rpc nodes of the blockchain in the path.
func (h *NodeHandler) GetNodes(ctx *fasthttp.RequestCtx) {
	name, _ := ctx.UserValue("blockchain").(string)
	blockchain, ok := entity.ParseBlockchain(name)
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, domain.ErrUnsupportedChain)
		return
	}

	details, err := h.svc.GetNodeStatuses(ctx, blockchain)
	if err != nil {
		if errors.Is(err, domain.ErrNoRPCsAvailable) {
			writeError(ctx, fasthttp.StatusNotFound, err)
			return
		}
		h.logger.Error("Failed to probe rpc nodes", zap.String("blockchain", name), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, errors.New("failed to probe rpc nodes"))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, details, h.logger)
}

func requireAssetID(ctx *fasthttp.RequestCtx) (string, bool) {
	assetID := string(ctx.QueryArgs().Peek(assetIDParam))
	if assetID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, errors.New("asset_id is required"))
		return "", false
	}
	return assetID, true
}

// boolArg parses an optional boolean query argument. Absent means false.
func boolArg(ctx *fasthttp.RequestCtx, name string) (bool, error) {
	raw := ctx.QueryArgs().Peek(name)
	if len(raw) == 0 {
		return false, nil
	}
	v, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, errors.New(name + " must be a boolean")
	}
	return v, nil
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}, logger *zap.Logger) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, err error) {
	body, _ := json.Marshal(errorResponse{Error: err.Error()})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
