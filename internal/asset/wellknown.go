package asset

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs
const (
	ChainIDEthereum  = 1
	ChainIDOptimism  = 10
	ChainIDBSC       = 56
	ChainIDPolygon   = 137
	ChainIDBase      = 8453
	ChainIDArbitrum  = 42161
	ChainIDAvalanche = 43114
	// ChainIDBitcoin follows the LI.FI convention for the non-EVM Bitcoin network.
	ChainIDBitcoin = 20000000000001
	ChainIDFiat    = 0
)

var networkNames = map[uint64]string{
	ChainIDEthereum:  "ethereum",
	ChainIDOptimism:  "optimism",
	ChainIDBSC:       "bsc",
	ChainIDPolygon:   "polygon",
	ChainIDBase:      "base",
	ChainIDArbitrum:  "arbitrum",
	ChainIDAvalanche: "avalanche",
	ChainIDBitcoin:   "bitcoin",
	ChainIDFiat:      "fiat",
}

// NetworkName returns the network name for a chain id, or "chain-<id>".
func NetworkName(chainID uint64) string {
	if n, ok := networkNames[chainID]; ok {
		return n
	}
	return "chain-" + strconv.FormatUint(chainID, 10)
}

// IsEVMChain reports whether chainID is an EVM network.
func IsEVMChain(chainID uint64) bool {
	return chainID != ChainIDBitcoin && chainID != ChainIDFiat
}

// Well-known token addresses
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	AddrUSDCArbitrum = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	AddrUSDTArbitrum = common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9")
	AddrWETHArbitrum = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")

	AddrUSDCOptimism = common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85")
	AddrUSDCBase     = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	AddrWETHOPStack  = common.HexToAddress("0x4200000000000000000000000000000000000006")

	AddrUSDCPolygon = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	AddrWETHPolygon = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")

	AddrUSDTBSC = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	AddrUSDCBSC = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")

	AddrUSDCAvalanche = common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E")
)

// Well-known Assets (pre-created instances)
var (
	// Ethereum
	ETH  = NewAssetWithName(NewNativeAssetID(ChainIDEthereum), "ETH", "Ethereum", 18)
	USDC = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum), "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDTEthereum), "USDT", "Tether USD", 6)
	DAI  = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrDAIEthereum), "DAI", "Dai Stablecoin", 18)
	WETH = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum), "WETH", "Wrapped Ether", 18, Wrapped())
	WBTC = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWBTCEthereum), "WBTC", "Wrapped Bitcoin", 8, Wrapped())

	// Arbitrum
	ETHArbitrum  = NewAssetWithName(NewNativeAssetID(ChainIDArbitrum), "ETH", "Ethereum", 18)
	USDCArbitrum = NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrUSDCArbitrum), "USDC", "USD Coin", 6)
	USDTArbitrum = NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrUSDTArbitrum), "USDT", "Tether USD", 6)
	WETHArbitrum = NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrWETHArbitrum), "WETH", "Wrapped Ether", 18, Wrapped())

	// Optimism
	ETHOptimism  = NewAssetWithName(NewNativeAssetID(ChainIDOptimism), "ETH", "Ethereum", 18)
	USDCOptimism = NewAssetWithName(NewTokenAssetID(ChainIDOptimism, AddrUSDCOptimism), "USDC", "USD Coin", 6)
	WETHOptimism = NewAssetWithName(NewTokenAssetID(ChainIDOptimism, AddrWETHOPStack), "WETH", "Wrapped Ether", 18, Wrapped())

	// Base
	ETHBase  = NewAssetWithName(NewNativeAssetID(ChainIDBase), "ETH", "Ethereum", 18)
	USDCBase = NewAssetWithName(NewTokenAssetID(ChainIDBase, AddrUSDCBase), "USDC", "USD Coin", 6)
	WETHBase = NewAssetWithName(NewTokenAssetID(ChainIDBase, AddrWETHOPStack), "WETH", "Wrapped Ether", 18, Wrapped())

	// Polygon
	POL         = NewAssetWithName(NewNativeAssetID(ChainIDPolygon), "POL", "Polygon Ecosystem Token", 18)
	USDCPolygon = NewAssetWithName(NewTokenAssetID(ChainIDPolygon, AddrUSDCPolygon), "USDC", "USD Coin", 6)
	WETHPolygon = NewAssetWithName(NewTokenAssetID(ChainIDPolygon, AddrWETHPolygon), "WETH", "Wrapped Ether", 18, Wrapped())

	// BSC
	BNB     = NewAssetWithName(NewNativeAssetID(ChainIDBSC), "BNB", "BNB", 18)
	USDTBSC = NewAssetWithName(NewTokenAssetID(ChainIDBSC, AddrUSDTBSC), "USDT", "Tether USD", 18)
	USDCBSC = NewAssetWithName(NewTokenAssetID(ChainIDBSC, AddrUSDCBSC), "USDC", "USD Coin", 18)

	// Avalanche
	AVAX          = NewAssetWithName(NewNativeAssetID(ChainIDAvalanche), "AVAX", "Avalanche", 18)
	USDCAvalanche = NewAssetWithName(NewTokenAssetID(ChainIDAvalanche, AddrUSDCAvalanche), "USDC", "USD Coin", 6)

	// Bitcoin
	BTC = NewAssetWithName(NewNativeAssetID(ChainIDBitcoin), "BTC", "Bitcoin", 8)

	// USD is the valuation unit for upstream reference prices.
	USD = NewAssetWithName(NewFiatAssetID("USD"), "USD", "US Dollar", 6)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		ETH, USDC, USDT, DAI, WETH, WBTC,
		ETHArbitrum, USDCArbitrum, USDTArbitrum, WETHArbitrum,
		ETHOptimism, USDCOptimism, WETHOptimism,
		ETHBase, USDCBase, WETHBase,
		POL, USDCPolygon, WETHPolygon,
		BNB, USDTBSC, USDCBSC,
		AVAX, USDCAvalanche,
		BTC,
	} {
		r.Register(a)
	}
	return r
}

// MustNewToken creates a new contract token asset.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return NewAssetWithName(NewTokenAssetID(chainID, address), symbol, name, decimals)
}
