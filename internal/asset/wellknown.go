package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDFiat     = 0 // off-chain / fiat
)

// Protocol and reserve token addresses on Ethereum Mainnet.
var (
	// Protocol tokens
	AddrOUSD = common.HexToAddress("0x2A8e1E676Ec238d8A992307B495b45B3fEAa5e86")
	AddrOETH = common.HexToAddress("0x856c4Efb76C1D1AE02e20CEB03A2A6a08b0b8dC3")

	// Stablecoin reserves
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

	// ETH derivatives
	AddrWETH    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrStETH   = common.HexToAddress("0xae7ab96520DE3A18E5e111B5EaAb095312D7fE84")
	AddrRETH    = common.HexToAddress("0xae78736Cd615f374D3085123A210448E74Fc6393")
	AddrFrxETH  = common.HexToAddress("0x5E8422345238F34275888049021821E8E08CAa1f")
	AddrSfrxETH = common.HexToAddress("0xac3E018457B222d93114458476f3E3416Abbe38F")
)

// Well-known AssetIDs
var (
	IDETH     = NewNativeAssetID(ChainIDEthereum)
	IDOUSD    = NewTokenAssetID(ChainIDEthereum, AddrOUSD)
	IDOETH    = NewTokenAssetID(ChainIDEthereum, AddrOETH)
	IDDAI     = NewTokenAssetID(ChainIDEthereum, AddrDAI)
	IDUSDC    = NewTokenAssetID(ChainIDEthereum, AddrUSDC)
	IDUSDT    = NewTokenAssetID(ChainIDEthereum, AddrUSDT)
	IDWETH    = NewTokenAssetID(ChainIDEthereum, AddrWETH)
	IDStETH   = NewTokenAssetID(ChainIDEthereum, AddrStETH)
	IDRETH    = NewTokenAssetID(ChainIDEthereum, AddrRETH)
	IDFrxETH  = NewTokenAssetID(ChainIDEthereum, AddrFrxETH)
	IDSfrxETH = NewTokenAssetID(ChainIDEthereum, AddrSfrxETH)
	IDUSD     = NewFiatAssetID("USD")
)

// Well-known Assets (pre-created instances)
var (
	ETH     = NewAssetWithName(IDETH, "ETH", "Ethereum", 18)
	OUSD    = NewAssetWithName(IDOUSD, "OUSD", "Origin Dollar", 18)
	OETH    = NewAssetWithName(IDOETH, "OETH", "Origin Ether", 18)
	DAI     = NewAssetWithName(IDDAI, "DAI", "Dai Stablecoin", 18)
	USDC    = NewAssetWithName(IDUSDC, "USDC", "USD Coin", 6)
	USDT    = NewAssetWithName(IDUSDT, "USDT", "Tether USD", 6)
	WETH    = NewAssetWithName(IDWETH, "WETH", "Wrapped Ether", 18)
	StETH   = NewAssetWithName(IDStETH, "stETH", "Lido Staked Ether", 18)
	RETH    = NewAssetWithName(IDRETH, "rETH", "Rocket Pool ETH", 18)
	FrxETH  = NewAssetWithName(IDFrxETH, "frxETH", "Frax Ether", 18)
	SfrxETH = NewAssetWithName(IDSfrxETH, "sfrxETH", "Staked Frax Ether", 18)
	USD     = NewAssetWithName(IDUSD, "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with the protocol's
// token universe.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ETH)
	r.Register(OUSD)
	r.Register(OETH)
	r.Register(DAI)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(WETH)
	r.Register(StETH)
	r.Register(RETH)
	r.Register(FrxETH)
	r.Register(SfrxETH)
	r.Register(USD)

	return r
}

// MustNewToken creates an ERC20 token asset, for registering custom tokens.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return NewAssetWithName(NewTokenAssetID(chainID, address), symbol, name, decimals)
}
