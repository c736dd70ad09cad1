package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetID_EVMFungible(t *testing.T) {
	id, ok := ParseAssetID("eip155:1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F")
	require.True(t, ok)

	assert.Equal(t, ChainKindEVM, id.Kind())
	assert.Equal(t, uint64(1), id.ChainID())
	assert.Equal(t, "erc20", id.AssetType())
	assert.Equal(t, "0x6B175474E89094C44Da98b954EedeAC495271d0F", id.Address())
	_, hasToken := id.TokenID()
	assert.False(t, hasToken)
}

func TestParseAssetID_EVMWithTokenID(t *testing.T) {
	id, ok := ParseAssetID("eip155:1/erc721:0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D/1")
	require.True(t, ok)

	token, hasToken := id.TokenID()
	assert.True(t, hasToken)
	assert.Equal(t, "1", token)
	assert.Equal(t, "eip155:1/erc721:0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D", id.ContractAssetID())
}

func TestParseAssetID_Solana(t *testing.T) {
	id, ok := ParseAssetID("solana/token:So11111111111111111111111111111111111111112")
	require.True(t, ok)

	assert.Equal(t, ChainKindSolana, id.Kind())
	assert.Equal(t, SolanaMainnetChainID, id.ChainID())
	assert.Equal(t, "So11111111111111111111111111111111111111112", id.Address())
	_, hasToken := id.TokenID()
	assert.False(t, hasToken)
}

func TestParseAssetID_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty address":         "eip155:1/erc20:",
		"short solana address":  "solana/token:short",
		"long solana address":   "solana/token:So111111111111111111111111111111111111111111111",
		"solana unknown type":   "solana/spl:So11111111111111111111111111111111111111112",
		"solana case mismatch":  "solana/Token:So11111111111111111111111111111111111111112",
		"solana extra segment":  "solana/nft:So11111111111111111111111111111111111111112/1",
		"bad checksum":          "eip155:1/erc20:0x6b175474e89094c44da98b954eedeac495271d0F",
		"lowercase address":     "eip155:1/erc20:0x6b175474e89094c44da98b954eedeac495271d0f",
		"no 0x prefix":          "eip155:1/erc20:6B175474E89094C44Da98b954EedeAC495271d0F",
		"malformed address":     "eip155:1/erc20:0x1234",
		"negative chain":        "eip155:-1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"non numeric chain":     "eip155:abc/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"missing asset type":    "eip155:1/:0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"missing colon":         "eip155:1/erc20",
		"too many segments":     "eip155:1/erc721:0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D/1/2",
		"unknown namespace":     "cosmos:1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"single segment":        "ETH",
		"empty":                 "",
		"only slash":            "/",
		"fiat":                  "USD",
		"unicode garbage":       "eip155:1/\xff\xfe:\x00",
		"chain overflows 64bit": "eip155:18446744073709551616/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := ParseAssetID(input)
				assert.False(t, ok, "input %q", input)
			})
		})
	}
}

func TestParseAssetID_CanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"eip155:1/erc20:0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"eip155:137/erc721:0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D/42",
		"solana/nft:So11111111111111111111111111111111111111112",
	}

	for _, input := range inputs {
		first, ok := ParseAssetID(input)
		require.True(t, ok, input)
		assert.Equal(t, input, first.String())

		second, ok := ParseAssetID(first.String())
		require.True(t, ok, input)
		assert.Equal(t, first, second)
	}
}

func TestContentTypeForExtension(t *testing.T) {
	ct, ok := ContentTypeForExtension("png")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	ct, ok = ContentTypeForExtension("SVG")
	assert.True(t, ok)
	assert.Equal(t, "image/svg+xml", ct)

	_, ok = ContentTypeForExtension("bin")
	assert.False(t, ok)
}

func TestNewRPCURL(t *testing.T) {
	u, err := NewRPCURL("https://rpc.example.org")
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTPS, u.Protocol())

	_, err = NewRPCURL("ftp://rpc.example.org")
	assert.Error(t, err)

	_, err = NewRPCURL("   ")
	assert.Error(t, err)

	_, err = NewRPCURL("not a url")
	assert.Error(t, err)
}
