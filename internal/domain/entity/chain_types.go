package entity

// Blockchain identifies a chain the way the metadata database does (rpc_nodes.blockchain).
type Blockchain string

// Blockchains with an EVM RPC pool.
const (
	BlockchainEthereum  Blockchain = "ETH"
	BlockchainOptimism  Blockchain = "OPTIMISM"
	BlockchainPolygon   Blockchain = "POLYGON_POS"
	BlockchainArbitrum  Blockchain = "ARBITRUM_ONE"
	BlockchainBase      Blockchain = "BASE"
	BlockchainGnosis    Blockchain = "GNOSIS"
	BlockchainScroll    Blockchain = "SCROLL"
	BlockchainBinanceSC Blockchain = "BINANCE_SC"
)

// SupportedEVMChains is the fixed list of chains whose pools are created at startup.
var SupportedEVMChains = []Blockchain{
	BlockchainEthereum,
	BlockchainOptimism,
	BlockchainPolygon,
	BlockchainArbitrum,
	BlockchainBase,
	BlockchainGnosis,
	BlockchainScroll,
	BlockchainBinanceSC,
}

var blockchainByChainID = map[uint64]Blockchain{
	1:      BlockchainEthereum,
	10:     BlockchainOptimism,
	56:     BlockchainBinanceSC,
	100:    BlockchainGnosis,
	137:    BlockchainPolygon,
	8453:   BlockchainBase,
	42161:  BlockchainArbitrum,
	534352: BlockchainScroll,
}

// BlockchainForChainID maps an EVM chain id to its Blockchain.
func BlockchainForChainID(chainID uint64) (Blockchain, bool) {
	b, ok := blockchainByChainID[chainID]
	return b, ok
}

// String returns the database representation of the blockchain.
func (b Blockchain) String() string {
	return string(b)
}

// ParseBlockchain returns the supported EVM blockchain named s.
func ParseBlockchain(s string) (Blockchain, bool) {
	for _, b := range SupportedEVMChains {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}
