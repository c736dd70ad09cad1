package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"icon-resolver/internal/config"
	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	domainService "icon-resolver/internal/domain/service"
	"icon-resolver/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Compile-time check
var _ domainService.ImageSource = (*ImageFetcher)(nil)

const (
	defaultTimeout      = 10 * time.Second
	aggregatorKeyHeader = "x-cg-demo-api-key"
	aggregatorExtension = "png"
)

// cdnCandidates are tried in order for a token icon.
var cdnCandidates = []struct {
	file      string
	extension string
}{
	{file: "logo.svg", extension: "svg"},
	{file: "logo-32.png", extension: "png"},
}

type coinDetail struct {
	Image struct {
		Small string `json:"small"`
	} `json:"image"`
}

// ImageFetcher fetches icons from the token CDN and the price aggregator over HTTP.
type ImageFetcher struct {
	client            *fasthttp.Client
	cdnBaseURL        string
	aggregatorBaseURL string
	aggregatorAPIKey  string
	timeout           time.Duration
	limiter           *rate.Limiter
	metadata          domainRepo.MetadataRepository
	known             *KnownIcons
	logger            *zap.Logger
}

// NewImageFetcher creates a fetcher. metadata resolves aggregator coin ids.
func NewImageFetcher(
	cfg config.RemoteConfig,
	metadata domainRepo.MetadataRepository,
	known *KnownIcons,
	logger *zap.Logger,
) *ImageFetcher {
	timeout := cfg.GetTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.AggregatorRPS > 0 {
		limit = rate.Limit(cfg.AggregatorRPS)
	}

	return &ImageFetcher{
		client: &fasthttp.Client{
			Name:        "icon-resolver",
			ReadTimeout: timeout,
		},
		cdnBaseURL:        strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		aggregatorBaseURL: strings.TrimSuffix(cfg.AggregatorBaseURL, "/"),
		aggregatorAPIKey:  cfg.AggregatorAPIKey,
		timeout:           timeout,
		limiter:           rate.NewLimiter(limit, 1),
		metadata:          metadata,
		known:             known,
		logger:            logger.Named("ImageFetcher"),
	}
}

// WellKnown fetches the hardcoded icon URL of assetID, if it has one.
func (f *ImageFetcher) WellKnown(ctx context.Context, assetID string) (entity.Image, bool) {
	iconURL, ok := f.known.Lookup(assetID)
	if !ok {
		return entity.Image{}, false
	}

	data, err := f.get(ctx, iconURL, nil)
	if err != nil {
		f.logger.Warn("Failed to fetch well-known icon",
			zap.String("assetId", assetID), zap.String("url", iconURL), zap.Error(err),
		)
		return entity.Image{}, false
	}
	return entity.Image{Data: data, Extension: extensionFromURL(iconURL)}, true
}

// TokenIcon fetches the CDN logo of a token, preferring SVG over the 32px PNG.
func (f *ImageFetcher) TokenIcon(ctx context.Context, chainID uint64, address string) (entity.Image, bool) {
	// EVM addresses are stored lowercased on the CDN; base58 addresses are case-sensitive.
	if strings.HasPrefix(address, "0x") {
		address = strings.ToLower(address)
	}
	dir := f.cdnBaseURL + "/" + strconv.FormatUint(chainID, 10) + "/" + address + "/"

	for _, candidate := range cdnCandidates {
		iconURL := dir + candidate.file
		data, err := f.get(ctx, iconURL, nil)
		if err != nil {
			f.logger.Debug("CDN icon not available", zap.String("url", iconURL), zap.Error(err))
			continue
		}
		return entity.Image{Data: data, Extension: candidate.extension}, true
	}
	return entity.Image{}, false
}

// AggregatorImage fetches the small coin image from the price aggregator.
func (f *ImageFetcher) AggregatorImage(ctx context.Context, assetID string) (entity.Image, bool) {
	logger := f.logger.With(zap.String("assetId", assetID))

	coinID, found, err := f.metadata.ResolvePriceAggregatorID(ctx, assetID)
	if err != nil {
		logger.Warn("Failed to resolve aggregator id", zap.Error(err))
		return entity.Image{}, false
	}
	if !found {
		logger.Debug("Asset has no aggregator id")
		return entity.Image{}, false
	}

	imageURL, err := f.coinImageURL(ctx, coinID)
	if err != nil {
		logger.Warn("Failed to query aggregator coin detail", zap.String("coinId", coinID), zap.Error(err))
		return entity.Image{}, false
	}

	data, err := f.get(ctx, imageURL, nil)
	if err != nil {
		logger.Warn("Failed to fetch aggregator image", zap.String("url", imageURL), zap.Error(err))
		return entity.Image{}, false
	}
	return entity.Image{Data: data, Extension: aggregatorExtension}, true
}

func (f *ImageFetcher) coinImageURL(ctx context.Context, coinID string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: aggregator rate limit wait: %v", apperrors.ErrTimeout, err)
	}

	query := url.Values{}
	for _, key := range []string{"localization", "tickers", "market_data", "community_data", "developer_data", "sparkline"} {
		query.Set(key, "false")
	}
	detailURL := f.aggregatorBaseURL + "/coins/" + url.PathEscape(coinID) + "?" + query.Encode()

	var headers map[string]string
	if f.aggregatorAPIKey != "" {
		headers = map[string]string{aggregatorKeyHeader: f.aggregatorAPIKey}
	}

	body, err := f.get(ctx, detailURL, headers)
	if err != nil {
		return "", err
	}

	var detail coinDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return "", fmt.Errorf("%w: invalid coin detail json: %v", apperrors.ErrExternalServiceFailure, err)
	}
	if detail.Image.Small == "" {
		return "", fmt.Errorf("%w: coin %s has no small image", domain.ErrNoImage, coinID)
	}
	return detail.Image.Small, nil
}

// get performs a GET and returns a non-empty body of a 2xx response.
func (f *ImageFetcher) get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: no time left for %s", apperrors.ErrTimeout, rawURL)
	}

	if err := f.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: GET %s timed out after %v", apperrors.ErrTimeout, rawURL, timeout)
		}
		return nil, fmt.Errorf("%w: GET %s failed: %v", apperrors.ErrExternalServiceFailure, rawURL, err)
	}

	status := resp.StatusCode()
	if status == fasthttp.StatusNotFound {
		return nil, fmt.Errorf("%w: GET %s", apperrors.ErrNotFound, rawURL)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: GET %s returned status %d", apperrors.ErrExternalServiceFailure, rawURL, status)
	}

	var body []byte
	if bytes.EqualFold(resp.Header.Peek(fasthttp.HeaderContentEncoding), []byte("gzip")) {
		gunzipped, err := resp.BodyGunzip()
		if err != nil {
			return nil, fmt.Errorf("%w: decompress %s: %v", apperrors.ErrExternalServiceFailure, rawURL, err)
		}
		body = gunzipped
	} else {
		body = append([]byte(nil), resp.Body()...)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("%w: GET %s returned an empty body", domain.ErrNoImage, rawURL)
	}
	return body, nil
}

// extensionFromURL returns the file extension of the URL path, defaulting to png.
func extensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return aggregatorExtension
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if _, ok := entity.ContentTypeForExtension(ext); !ok {
		return aggregatorExtension
	}
	return ext
}
