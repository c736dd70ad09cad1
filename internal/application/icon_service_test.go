package application

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"icon-resolver/internal/adapter/storage/filesystem"
	"icon-resolver/internal/application/port"
	"icon-resolver/internal/domain"
	"icon-resolver/internal/domain/entity"
	domainRepo "icon-resolver/internal/domain/repository"
	"icon-resolver/internal/domain/repository/mocks"
	"icon-resolver/internal/pkg/apperrors"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	daiID      = "eip155:1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F"
	positionID = "eip155:1/erc721:0xC36442b4a4522E871399CD717aBDD847Ab11FE88/5"
)

// fakeSources is an ImageSource and NFTImageSource whose stages are plain functions.
type fakeSources struct {
	wellKnown  func(assetID string) (entity.Image, bool)
	token      func(chainID uint64, address string) (entity.Image, bool)
	aggregator func(assetID string) (entity.Image, bool)
	nft        func(ident entity.AssetIdentifier) (entity.Image, bool)

	wellKnownCalls, tokenCalls, aggregatorCalls, nftCalls atomic.Int32
}

func (f *fakeSources) WellKnown(_ context.Context, assetID string) (entity.Image, bool) {
	f.wellKnownCalls.Add(1)
	if f.wellKnown == nil {
		return entity.Image{}, false
	}
	return f.wellKnown(assetID)
}

func (f *fakeSources) TokenIcon(_ context.Context, chainID uint64, address string) (entity.Image, bool) {
	f.tokenCalls.Add(1)
	if f.token == nil {
		return entity.Image{}, false
	}
	return f.token(chainID, address)
}

func (f *fakeSources) AggregatorImage(_ context.Context, assetID string) (entity.Image, bool) {
	f.aggregatorCalls.Add(1)
	if f.aggregator == nil {
		return entity.Image{}, false
	}
	return f.aggregator(assetID)
}

func (f *fakeSources) FetchPositionImage(_ context.Context, ident entity.AssetIdentifier) (entity.Image, bool) {
	f.nftCalls.Add(1)
	if f.nft == nil {
		return entity.Image{}, false
	}
	return f.nft(ident)
}

type testEngine struct {
	svc     *IconService
	store   *filesystem.IconStore
	meta    *mocks.MockMetadataRepository
	sources *fakeSources
	offset  *atomic.Int64
}

func newTestEngine(t *testing.T, sources *fakeSources) *testEngine {
	t.Helper()
	ctrl := gomock.NewController(t)
	meta := mocks.NewMockMetadataRepository(ctrl)
	store := filesystem.NewIconStore(osfs.New(t.TempDir()), meta, zap.NewNop())

	offset := &atomic.Int64{}
	clock := func() time.Time { return time.Now().Add(time.Duration(offset.Load())) }

	svc := NewIconService(context.Background(), IconServiceDeps{
		Store:    store,
		Metadata: meta,
		Images:   sources,
		NFT:      sources,
	}, DefaultNegativeTTL, zap.NewNop(), WithClock(clock))
	t.Cleanup(svc.Wait)

	return &testEngine{svc: svc, store: store, meta: meta, sources: sources, offset: offset}
}

func (e *testEngine) check(t *testing.T, assetID string, opts port.CheckOptions) entity.CheckStatus {
	t.Helper()
	status, err := e.svc.Check(context.Background(), assetID, opts)
	require.NoError(t, err)
	return status
}

func TestIconService_ConcurrentChecksRunOnePipeline(t *testing.T) {
	release := make(chan struct{})
	sources := &fakeSources{
		aggregator: func(string) (entity.Image, bool) {
			<-release
			return entity.Image{Data: []byte("png"), Extension: "png"}, true
		},
	}
	e := newTestEngine(t, sources)

	var wg sync.WaitGroup
	statuses := make([]entity.CheckStatus, 16)
	for i := range statuses {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			statuses[i], _ = e.svc.Check(context.Background(), "DAI", port.CheckOptions{})
		}()
	}
	wg.Wait()

	for _, status := range statuses {
		assert.Equal(t, entity.CheckStatusProcessing, status)
	}
	assert.Equal(t, 1, e.svc.inFlight.Len())

	close(release)
	e.svc.Wait()

	assert.Equal(t, int32(1), sources.aggregatorCalls.Load())
	assert.Equal(t, 0, e.svc.inFlight.Len())
	assert.Equal(t, entity.CheckStatusAvailable, e.check(t, "DAI", port.CheckOptions{}))
}

func TestIconService_NegativeMarkerRoundTrip(t *testing.T) {
	sources := &fakeSources{}
	e := newTestEngine(t, sources)

	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "NOPE", port.CheckOptions{}))
	e.svc.Wait()

	assert.Equal(t, entity.CheckStatusConfirmedAbsent, e.check(t, "NOPE", port.CheckOptions{}))
	assert.Equal(t, entity.GetStatusNotFound, e.svc.Get(context.Background(), "NOPE", port.GetOptions{}).Status)
	assert.Equal(t, int32(1), sources.aggregatorCalls.Load())

	e.offset.Store(int64(11 * time.Hour))
	assert.Equal(t, entity.CheckStatusConfirmedAbsent, e.check(t, "NOPE", port.CheckOptions{}))

	e.offset.Store(int64(12*time.Hour + time.Minute))
	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "NOPE", port.CheckOptions{}))
	e.svc.Wait()
	assert.Equal(t, int32(2), sources.aggregatorCalls.Load())
}

func TestIconService_GetServesCachedIcon(t *testing.T) {
	e := newTestEngine(t, &fakeSources{})
	ctx := context.Background()

	stem, err := e.store.ResolvePath(ctx, "DAI", false)
	require.NoError(t, err)
	require.NoError(t, e.store.Write(ctx, stem, "png", []byte("png-bytes")))

	sum := md5.Sum([]byte("png-bytes"))
	etag := hex.EncodeToString(sum[:])

	res := e.svc.Get(ctx, "DAI", port.GetOptions{})
	require.Equal(t, entity.GetStatusOK, res.Status)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, []byte("png-bytes"), res.Data)
	assert.Equal(t, etag, res.ETag)

	res = e.svc.Get(ctx, "DAI", port.GetOptions{MatchHeader: etag})
	assert.Equal(t, entity.GetStatusNotModified, res.Status)
	assert.Empty(t, res.Data)

	res = e.svc.Get(ctx, "DAI", port.GetOptions{MatchHeader: "stale"})
	assert.Equal(t, entity.GetStatusOK, res.Status)

	assert.Equal(t, entity.GetStatusNotFound, e.svc.Get(ctx, "MISSING", port.GetOptions{}).Status)
}

func TestIconService_GetRejectsUnknownExtension(t *testing.T) {
	e := newTestEngine(t, &fakeSources{})
	ctx := context.Background()

	stem, err := e.store.ResolvePath(ctx, "ODD", false)
	require.NoError(t, err)
	require.NoError(t, e.store.Write(ctx, stem, "bin", []byte{1, 2, 3}))

	assert.Equal(t, entity.GetStatusNotFound, e.svc.Get(ctx, "ODD", port.GetOptions{}).Status)
}

func TestIconService_ForceRefreshReplacesIcon(t *testing.T) {
	sources := &fakeSources{
		wellKnown: func(string) (entity.Image, bool) {
			return entity.Image{Data: []byte("<svg/>"), Extension: "svg"}, true
		},
	}
	e := newTestEngine(t, sources)
	ctx := context.Background()

	stem, err := e.store.ResolvePath(ctx, "ETH", false)
	require.NoError(t, err)
	require.NoError(t, e.store.Write(ctx, stem, "png", []byte("old")))

	assert.Equal(t, entity.CheckStatusAvailable, e.check(t, "ETH", port.CheckOptions{}))
	assert.Equal(t, int32(0), sources.wellKnownCalls.Load())

	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "ETH", port.CheckOptions{ForceRefresh: true}))
	e.svc.Wait()

	res := e.svc.Get(ctx, "ETH", port.GetOptions{})
	require.Equal(t, entity.GetStatusOK, res.Status)
	assert.Equal(t, "image/svg+xml", res.ContentType)
	assert.Equal(t, []byte("<svg/>"), res.Data)
}

func TestIconService_PipelineOrder(t *testing.T) {
	t.Run("nft position before cdn", func(t *testing.T) {
		sources := &fakeSources{
			nft: func(ident entity.AssetIdentifier) (entity.Image, bool) {
				tokenID, _ := ident.TokenID()
				assert.Equal(t, "5", tokenID)
				return entity.Image{Data: []byte("<svg>pos</svg>"), Extension: "svg"}, true
			},
			token: func(uint64, string) (entity.Image, bool) {
				return entity.Image{Data: []byte("cdn"), Extension: "png"}, true
			},
		}
		e := newTestEngine(t, sources)
		e.meta.EXPECT().
			IsNFTPositionContract(gomock.Any(), "eip155:1/erc721:0xC36442b4a4522E871399CD717aBDD847Ab11FE88").
			Return(true, nil)

		e.check(t, positionID, port.CheckOptions{})
		e.svc.Wait()

		assert.Equal(t, int32(1), sources.nftCalls.Load())
		assert.Equal(t, int32(0), sources.tokenCalls.Load())
		assert.Equal(t, []byte("<svg>pos</svg>"), e.svc.Get(context.Background(), positionID, port.GetOptions{}).Data)
	})

	t.Run("cdn for parsed ids", func(t *testing.T) {
		sources := &fakeSources{
			token: func(chainID uint64, address string) (entity.Image, bool) {
				assert.Equal(t, uint64(1), chainID)
				assert.Equal(t, "0x6B175474E89094C44Da98b954EedeAC495271d0F", address)
				return entity.Image{Data: []byte("cdn"), Extension: "png"}, true
			},
		}
		e := newTestEngine(t, sources)

		e.check(t, daiID, port.CheckOptions{})
		e.svc.Wait()

		assert.Equal(t, int32(0), sources.nftCalls.Load(), "no token id, no on-chain lookup")
		assert.Equal(t, int32(0), sources.aggregatorCalls.Load())
		assert.Equal(t, entity.GetStatusOK, e.svc.Get(context.Background(), daiID, port.GetOptions{}).Status)
	})

	t.Run("unparsed ids skip cdn", func(t *testing.T) {
		sources := &fakeSources{}
		e := newTestEngine(t, sources)

		e.check(t, "BTC", port.CheckOptions{})
		e.svc.Wait()

		assert.Equal(t, int32(1), sources.wellKnownCalls.Load())
		assert.Equal(t, int32(0), sources.tokenCalls.Load())
		assert.Equal(t, int32(1), sources.aggregatorCalls.Load())
	})
}

func TestIconService_PanicReleasesInFlightKey(t *testing.T) {
	sources := &fakeSources{
		wellKnown: func(string) (entity.Image, bool) { panic("boom") },
	}
	e := newTestEngine(t, sources)

	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "ETH", port.CheckOptions{}))
	e.svc.Wait()

	assert.Equal(t, 0, e.svc.inFlight.Len())
	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "ETH", port.CheckOptions{}), "a new pipeline can start")
	e.svc.Wait()
	assert.Equal(t, int32(2), sources.wellKnownCalls.Load())
}

func TestIconService_CollectionIcons(t *testing.T) {
	sources := &fakeSources{
		wellKnown: func(string) (entity.Image, bool) {
			return entity.Image{Data: []byte("<svg>eth</svg>"), Extension: "svg"}, true
		},
	}
	e := newTestEngine(t, sources)
	wrapped := "eip155:10/erc20:0x4200000000000000000000000000000000000006"
	e.check(t, wrapped, port.CheckOptions{UseCollection: true})
	e.svc.Wait()

	res := e.svc.Get(context.Background(), "ETH", port.GetOptions{})
	require.Equal(t, entity.GetStatusOK, res.Status, "cached under the collection main asset")
	assert.Equal(t, entity.GetStatusOK, e.svc.Get(context.Background(), wrapped, port.GetOptions{UseCollection: true}).Status)
	assert.Equal(t, entity.GetStatusNotFound, e.svc.Get(context.Background(), wrapped, port.GetOptions{}).Status)
}

func TestIconService_Upload(t *testing.T) {
	e := newTestEngine(t, &fakeSources{})
	ctx := context.Background()

	err := e.svc.Upload(ctx, "DAI", "application/octet-stream", []byte("x"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedMediaType)

	err = e.svc.Upload(ctx, "DAI", "image/png", nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, e.svc.Upload(ctx, "DAI", "image/svg+xml", []byte("<svg>custom</svg>")))
	require.NoError(t, e.svc.Upload(ctx, "DAI", "image/png; charset=binary", []byte("custom-png")))

	assert.Equal(t, entity.CheckStatusAvailable, e.check(t, "DAI", port.CheckOptions{ForceRefresh: true}))

	res := e.svc.Get(ctx, "DAI", port.GetOptions{})
	require.Equal(t, entity.GetStatusOK, res.Status)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, []byte("custom-png"), res.Data)
}

// markerWithoutModTime reports a negative marker whose modification time is unknown.
type markerWithoutModTime struct {
	*filesystem.IconStore
}

func (markerWithoutModTime) Find(context.Context, domainRepo.Stem, domainRepo.Stem) (domainRepo.CacheEntry, bool, error) {
	return domainRepo.CacheEntry{Path: "images/assets/all/NOPE_small.svg", Extension: "svg"}, true, nil
}

func TestIconService_NegativeMarkerWithoutModTime(t *testing.T) {
	sources := &fakeSources{}
	ctrl := gomock.NewController(t)
	meta := mocks.NewMockMetadataRepository(ctrl)
	store := markerWithoutModTime{filesystem.NewIconStore(osfs.New(t.TempDir()), meta, zap.NewNop())}
	inFlight := NewInFlightRegistry()

	svc := NewIconService(context.Background(), IconServiceDeps{
		Store:    store,
		Metadata: meta,
		Images:   sources,
		NFT:      sources,
		InFlight: inFlight,
	}, DefaultNegativeTTL, zap.NewNop())
	t.Cleanup(svc.Wait)

	status, err := svc.Check(context.Background(), "NOPE", port.CheckOptions{})
	assert.Equal(t, entity.CheckStatusError, status)
	assert.ErrorIs(t, err, domain.ErrStorage)

	svc.Wait()
	assert.Equal(t, 0, inFlight.Len())
	assert.Equal(t, int32(0), sources.wellKnownCalls.Load())
	assert.Equal(t, int32(0), sources.aggregatorCalls.Load())
}

func TestIconService_EmptyCustomIconIsIgnored(t *testing.T) {
	sources := &fakeSources{
		aggregator: func(string) (entity.Image, bool) {
			return entity.Image{Data: []byte("dai-png"), Extension: "png"}, true
		},
	}
	e := newTestEngine(t, sources)
	ctx := context.Background()

	require.NoError(t, e.store.Write(ctx, e.store.CustomStem("DAI"), "png", nil))

	assert.Equal(t, entity.CheckStatusProcessing, e.check(t, "DAI", port.CheckOptions{}))
	e.svc.Wait()
	assert.Equal(t, int32(1), sources.aggregatorCalls.Load())

	res := e.svc.Get(ctx, "DAI", port.GetOptions{})
	require.Equal(t, entity.GetStatusOK, res.Status)
	assert.Equal(t, []byte("dai-png"), res.Data)
	assert.Equal(t, entity.CheckStatusAvailable, e.check(t, "DAI", port.CheckOptions{}))
}

func TestInFlightRegistry(t *testing.T) {
	r := NewInFlightRegistry()
	assert.True(t, r.TryAcquire("a"))
	assert.False(t, r.TryAcquire("a"))
	assert.True(t, r.TryAcquire("b"))
	r.Release("a")
	assert.True(t, r.TryAcquire("a"))
	assert.Equal(t, 2, r.Len())
}
