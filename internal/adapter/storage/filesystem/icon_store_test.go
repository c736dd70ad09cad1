package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"icon-resolver/internal/domain/repository/mocks"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const daiID = "eip155:1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F"

func newTestStore(t *testing.T) (*IconStore, *mocks.MockMetadataRepository, string) {
	t.Helper()
	ctrl := gomock.NewController(t)
	meta := mocks.NewMockMetadataRepository(ctrl)
	root := t.TempDir()
	return NewIconStore(osfs.New(root), meta, zap.NewNop()), meta, root
}

func TestEncodeFilename(t *testing.T) {
	assert.Equal(t, "ETH", EncodeFilename("ETH"))
	assert.Equal(t, "a-b_c.d~e", EncodeFilename("a-b_c.d~e"))
	assert.Equal(t,
		"eip155%3A1%2Ferc20%3A0x6B175474E89094C44Da98b954EedeAC495271d0F",
		EncodeFilename(daiID),
	)
	assert.Equal(t, "%20%25%C3%A9", EncodeFilename(" %é"))
}

func TestIconStore_ResolvePath(t *testing.T) {
	ctx := context.Background()

	t.Run("raw id without collection", func(t *testing.T) {
		store, _, _ := newTestStore(t)
		stem, err := store.ResolvePath(ctx, daiID, false)
		require.NoError(t, err)
		assert.Equal(t, "images/assets/all", stem.Dir)
		assert.Equal(t, EncodeFilename(daiID)+"_small", stem.Name)
	})

	t.Run("collection main asset substituted", func(t *testing.T) {
		store, meta, _ := newTestStore(t)
		meta.EXPECT().ResolveCollectionMainAsset(gomock.Any(), daiID).Return("DAI", true, nil)

		stem, err := store.ResolvePath(ctx, daiID, true)
		require.NoError(t, err)
		assert.Equal(t, "DAI_small", stem.Name)
	})

	t.Run("no collection keeps raw id", func(t *testing.T) {
		store, meta, _ := newTestStore(t)
		meta.EXPECT().ResolveCollectionMainAsset(gomock.Any(), daiID).Return("", false, nil)

		stem, err := store.ResolvePath(ctx, daiID, true)
		require.NoError(t, err)
		assert.Equal(t, EncodeFilename(daiID)+"_small", stem.Name)
	})

	t.Run("wrapped native skips database", func(t *testing.T) {
		store, _, _ := newTestStore(t)
		stem, err := store.ResolvePath(ctx, "eip155:1/erc20:0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", true)
		require.NoError(t, err)
		assert.Equal(t, "ETH_small", stem.Name)
	})

	t.Run("database failure surfaces", func(t *testing.T) {
		store, meta, _ := newTestStore(t)
		dbErr := errors.New("db closed")
		meta.EXPECT().ResolveCollectionMainAsset(gomock.Any(), daiID).Return("", false, dbErr)

		_, err := store.ResolvePath(ctx, daiID, true)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestIconStore_WriteFindRead(t *testing.T) {
	ctx := context.Background()
	store, _, root := newTestStore(t)

	def, err := store.ResolvePath(ctx, daiID, false)
	require.NoError(t, err)
	custom := store.CustomStem(daiID)

	_, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	assert.False(t, found, "missing directories mean a miss")

	require.NoError(t, store.Write(ctx, def, "png", []byte("png-bytes")))
	_, statErr := os.Stat(filepath.Join(root, "images/assets/all", def.Name+".png"))
	require.NoError(t, statErr)

	entry, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "png", entry.Extension)
	assert.False(t, entry.Custom)
	assert.False(t, entry.IsNegativeMarker())
	assert.False(t, entry.ModTime.IsZero())

	data, err := store.Read(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestIconStore_CustomOverridesDefault(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	def, err := store.ResolvePath(ctx, daiID, false)
	require.NoError(t, err)
	custom := store.CustomStem(daiID)

	require.NoError(t, store.Write(ctx, def, "png", []byte("default")))
	require.NoError(t, store.Write(ctx, custom, "svg", []byte("<svg/>")))

	entry, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.Custom)
	assert.Equal(t, "svg", entry.Extension)
}

func TestIconStore_EmptyCustomFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	def, err := store.ResolvePath(ctx, daiID, false)
	require.NoError(t, err)
	custom := store.CustomStem(daiID)

	require.NoError(t, store.Write(ctx, custom, "png", nil))

	_, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Write(ctx, def, "svg", []byte("<svg/>")))
	entry, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, entry.Custom)
	assert.Equal(t, "svg", entry.Extension)
}

func TestIconStore_StemMatchIsExact(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	long := store.CustomStem("ETH2")
	require.NoError(t, store.Write(ctx, long, "png", []byte("x")))

	_, found, err := store.Find(ctx, store.CustomStem("ETH"), store.CustomStem("nothing"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIconStore_NegativeMarkerAndRemove(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	def, err := store.ResolvePath(ctx, daiID, false)
	require.NoError(t, err)
	custom := store.CustomStem(daiID)

	require.NoError(t, store.WriteNegativeMarker(ctx, def))

	entry, found, err := store.Find(ctx, custom, def)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, entry.IsNegativeMarker())
	assert.Equal(t, "svg", entry.Extension)

	require.NoError(t, store.Remove(ctx, def))
	_, found, err = store.Find(ctx, custom, def)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, store.Remove(ctx, def), "removing a missing stem is not an error")
}
