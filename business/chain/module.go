// Package chain implements the chain bounded context: node access, gas
// prices, and the account balance/allowance snapshot.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/swap-router/business/chain/app"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the node client (public - contract adapters share it)
	di.RegisterToken(c, chainDI.EthereumClient, func(sr di.ServiceRegistry) *ethereum.Client {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		eth := sr.Get("ethClient").(*ethclient.Client)

		client, err := ethereum.NewClient(context.Background(), eth, ethereum.ClientConfig{
			HTTPURL:      cfg.Ethereum.HTTPURL,
			WebSocketURL: cfg.Ethereum.WebSocketURL,
			ChainID:      cfg.Ethereum.ChainID,
			PrivateKey:   cfg.Ethereum.PrivateKey,
		}, log)
		if err != nil {
			panic("failed to create ethereum client: " + err.Error())
		}
		return client
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, chainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := chainDI.GetEthereumClient(sr)

		oracle, err := ethereum.NewGasOracle(client, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register TokenService (private - internal dependency)
	di.RegisterToken(c, chainDI.TokenService, func(sr di.ServiceRegistry) app.TokenService {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := chainDI.GetEthereumClient(sr)

		erc20, err := ethereum.NewERC20(client, log)
		if err != nil {
			panic("failed to create erc20 service: " + err.Error())
		}
		return erc20
	})

	// Register SnapshotSource (private - internal dependency)
	di.RegisterToken(c, chainDI.SnapshotSource, func(sr di.ServiceRegistry) app.SnapshotSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		client := chainDI.GetEthereumClient(sr)

		erc20, err := ethereum.NewERC20(client, log)
		if err != nil {
			panic("failed to create erc20 service: " + err.Error())
		}

		native, _ := registry.GetNative(cfg.Ethereum.ChainID)
		return ethereum.NewSnapshotPoller(
			client,
			erc20,
			native,
			trackedTokens(cfg, registry),
			ethereum.SnapshotPollerConfig{
				PollInterval:    cfg.Snapshot.PollInterval,
				SubscribeEvents: cfg.Snapshot.SubscribeEvents,
			},
			log,
		)
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		client := chainDI.GetEthereumClient(sr)
		return app.NewChainService(
			chainDI.GetGasOracle(sr),
			chainDI.GetSnapshotSource(sr),
			chainDI.GetTokenService(sr),
			client,
		)
	})

	return nil
}

// Startup launches the snapshot refresh loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	source := chainDI.GetSnapshotSource(mono.Services())
	go func() {
		if err := source.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "snapshot poller stopped", "error", err)
		}
	}()

	log.Info(ctx, "chain module started")
	return nil
}

// trackedTokens lists every ERC20 the snapshot watches, with the venue
// contracts that may need an allowance from the account.
func trackedTokens(cfg *config.Config, registry *asset.Registry) []ethereum.TrackedToken {
	spenders := venueSpenders(cfg)

	var tracked []ethereum.TrackedToken
	for _, a := range registry.All() {
		if !a.IsToken() || a.ChainID() != cfg.Ethereum.ChainID {
			continue
		}
		tracked = append(tracked, ethereum.TrackedToken{
			Token:    a,
			Spenders: spenders,
		})
	}
	return tracked
}

func venueSpenders(cfg *config.Config) []common.Address {
	var spenders []common.Address
	for _, hex := range []string{
		cfg.Venues.VaultAddress,
		cfg.Venues.ZapperAddress,
		cfg.Venues.CurvePoolAddress,
		cfg.Venues.CurveOETHPoolAddress,
		cfg.Venues.CurveRouterAddress,
		cfg.Venues.UniswapV3Router,
		cfg.Venues.UniswapV2Router,
		cfg.Venues.SushiswapRouter,
	} {
		if hex == "" {
			continue
		}
		spenders = append(spenders, common.HexToAddress(hex))
	}
	return spenders
}
