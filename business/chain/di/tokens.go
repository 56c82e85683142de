// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/fd1az/swap-router/business/chain/app"
	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")

	// EthereumClient is shared with contexts that call contracts directly.
	EthereumClient = di.NewToken[*ethereum.Client]("chain.EthereumClient")
)

// Private dependency tokens - internal to chain module
var (
	GasOracle      = di.NewToken[app.GasOracle]("chain:gasOracle")
	SnapshotSource = di.NewToken[app.SnapshotSource]("chain:snapshotSource")
	TokenService   = di.NewToken[app.TokenService]("chain:tokenService")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetEthereumClient(c di.ServiceRegistry) *ethereum.Client {
	return di.GetToken(c, EthereumClient)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetSnapshotSource(c di.ServiceRegistry) app.SnapshotSource {
	return di.GetToken(c, SnapshotSource)
}

func GetTokenService(c di.ServiceRegistry) app.TokenService {
	return di.GetToken(c, TokenService)
}
