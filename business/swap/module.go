// Package swap implements the swap bounded context: venue adapters,
// estimation rounds, and route execution.
package swap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	chainapp "github.com/fd1az/swap-router/business/chain/app"
	chainDI "github.com/fd1az/swap-router/business/chain/di"
	pricingDI "github.com/fd1az/swap-router/business/pricing/di"
	"github.com/fd1az/swap-router/business/swap/app"
	swapDI "github.com/fd1az/swap-router/business/swap/di"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/business/swap/infra/curve"
	"github.com/fd1az/swap-router/business/swap/infra/uniswapv2"
	"github.com/fd1az/swap-router/business/swap/infra/uniswapv3"
	"github.com/fd1az/swap-router/business/swap/infra/vault"
	"github.com/fd1az/swap-router/business/swap/infra/zapper"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the swap bounded context.
type Module struct{}

// RegisterServices registers all swap services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the vault adapter (private). It carries extra capability
	// beyond the generic venue set, so it gets its own token.
	di.RegisterToken(c, swapDI.VaultAdapter, func(sr di.ServiceRegistry) app.VaultPort {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		client := chainDI.GetEthereumClient(sr)

		protocol := protocolAsset(cfg, registry)
		reserves, err := reserveAssets(cfg, registry)
		if err != nil {
			panic("failed to resolve vault reserves: " + err.Error())
		}

		adapter, err := vault.NewAdapter(
			client,
			cfg.Venues.VaultAddressHex(),
			protocol,
			reserves,
			registry,
			log,
		)
		if err != nil {
			panic("failed to create vault adapter: " + err.Error())
		}
		return adapter
	})

	// Register the remaining venue adapters (private). Zapper is a
	// protocol-token contract that only exists for OETH; it is skipped
	// on an OUSD deployment.
	di.RegisterToken(c, swapDI.VenueAdapters, func(sr di.ServiceRegistry) []app.VenueAdapter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		client := chainDI.GetEthereumClient(sr)

		protocol := protocolAsset(cfg, registry)

		var adapters []app.VenueAdapter

		if cfg.Swap.Protocol == "OETH" && cfg.Venues.ZapperAddress != "" {
			eth := registry.MustGet(asset.IDETH)
			sfrx, _ := registry.Get(asset.IDSfrxETH)
			zap, err := zapper.NewAdapter(client, cfg.Venues.ZapperAddressHex(), protocol, eth, sfrx, log)
			if err != nil {
				panic("failed to create zapper adapter: " + err.Error())
			}
			adapters = append(adapters, zap)
		}

		routes, err := curve.DefaultRoutes(
			cfg.Venues.CurvePoolAddressHex(),
			cfg.Venues.CurveOETHPoolAddressHex(),
			registry,
		)
		if err != nil {
			panic("failed to build curve routes: " + err.Error())
		}
		crv, err := curve.NewAdapter(client, cfg.Venues.CurveRouterAddressHex(), routes, log)
		if err != nil {
			panic("failed to create curve adapter: " + err.Error())
		}
		adapters = append(adapters, crv)

		v3, err := uniswapv3.NewAdapter(client, cfg.Venues, registry, log)
		if err != nil {
			panic("failed to create uniswap v3 adapter: " + err.Error())
		}
		adapters = append(adapters, v3)

		bridge := registry.MustGet(asset.IDUSDT)
		stables := []*asset.Asset{
			registry.MustGet(asset.IDDAI),
			registry.MustGet(asset.IDUSDC),
			registry.MustGet(asset.IDUSDT),
		}
		for _, v2 := range []struct {
			venue  domain.Venue
			router string
		}{
			{domain.VenueUniswapV2, cfg.Venues.UniswapV2Router},
			{domain.VenueSushiswap, cfg.Venues.SushiswapRouter},
		} {
			adapter, err := uniswapv2.NewAdapter(
				v2.venue,
				client,
				common.HexToAddress(v2.router),
				protocol,
				bridge,
				stables,
				cfg.Venues.SwapDeadline,
				log,
			)
			if err != nil {
				panic(fmt.Sprintf("failed to create %s adapter: %v", v2.venue, err))
			}
			adapters = append(adapters, adapter)
		}

		return adapters
	})

	// Register the estimator chain (private). The slice order is the
	// display order of the venue table.
	di.RegisterToken(c, swapDI.Estimators, func(sr di.ServiceRegistry) []app.Estimator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		deps := app.EstimatorDeps{
			Snapshots: chainDI.GetChainService(sr),
			Cfg:       cfg.Swap,
			Log:       log,
		}

		estimators := []app.Estimator{
			app.NewVaultEstimator(swapDI.GetVaultAdapter(sr), deps),
		}
		for _, adapter := range swapDI.GetVenueAdapters(sr) {
			var est app.Estimator
			switch adapter.Venue() {
			case domain.VenueZapper:
				est = app.NewZapperEstimator(adapter, deps)
			case domain.VenueCurve:
				est = app.NewCurveEstimator(adapter, deps)
			case domain.VenueUniswapV3:
				est = app.NewUniswapV3Estimator(adapter, deps)
			case domain.VenueUniswapV2, domain.VenueSushiswap:
				est = app.NewUniswapV2Estimator(adapter, deps)
			default:
				panic("no estimator for venue " + adapter.Venue().String())
			}
			estimators = append(estimators, est)
		}
		return estimators
	})

	// Register the round store (public - reporters subscribe to it)
	di.RegisterToken(c, swapDI.Store, func(sr di.ServiceRegistry) *app.Store {
		return app.NewStore()
	})

	// Register the orchestrator (public - the UI drives it)
	di.RegisterToken(c, swapDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		orch, err := app.NewOrchestrator(
			swapDI.GetEstimators(sr),
			swapDI.GetStore(sr),
			chainDI.GetChainService(sr),
			pricingDI.GetPricingService(sr),
			cfg.Swap,
			log,
		)
		if err != nil {
			panic("failed to create orchestrator: " + err.Error())
		}
		return orch
	})

	// Register the dispatcher (public - the UI drives it)
	di.RegisterToken(c, swapDI.Dispatcher, func(sr di.ServiceRegistry) *app.Dispatcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chain := chainDI.GetChainService(sr)

		return app.NewDispatcher(
			swapDI.GetVaultAdapter(sr),
			swapDI.GetVenueAdapters(sr),
			swapDI.GetStore(sr),
			chain,
			&chainApprover{chain: chain},
			chain,
			cfg.Swap,
			log,
		)
	})

	return nil
}

// Startup binds the orchestrator's background lifetime.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	swapDI.GetOrchestrator(mono.Services()).Start(ctx)
	mono.Logger().Info(ctx, "swap module started",
		"protocol", mono.Config().Swap.Protocol)
	return nil
}

// chainApprover adapts the chain service's approval call to the
// dispatcher's port.
type chainApprover struct {
	chain *chainapp.ChainService
}

func (a *chainApprover) Approve(ctx context.Context, token *asset.Asset, spender common.Address, amount asset.Amount) (*app.TxHandle, error) {
	hash, gasLimit, err := a.chain.Approve(ctx, token, spender, amount.Raw())
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}

// protocolAsset resolves the configured protocol token.
func protocolAsset(cfg *config.Config, registry *asset.Registry) *asset.Asset {
	if cfg.Swap.Protocol == "OETH" {
		return registry.MustGet(asset.IDOETH)
	}
	return registry.MustGet(asset.IDOUSD)
}

// reserveAssets resolves the configured vault reserve symbols.
func reserveAssets(cfg *config.Config, registry *asset.Registry) ([]*asset.Asset, error) {
	var reserves []*asset.Asset
	for _, symbol := range cfg.Venues.ReserveAssets {
		a, ok := registry.GetBySymbol(symbol)
		if !ok {
			return nil, fmt.Errorf("unknown reserve asset %q", symbol)
		}
		reserves = append(reserves, a)
	}
	return reserves, nil
}
