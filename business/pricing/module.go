// Package pricing implements the pricing bounded context for the ETH/USD reference price.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	chainDI "github.com/fd1az/swap-router/business/chain/di"
	"github.com/fd1az/swap-router/business/pricing/app"
	pricingDI "github.com/fd1az/swap-router/business/pricing/di"
	"github.com/fd1az/swap-router/business/pricing/infra/binance"
	"github.com/fd1az/swap-router/business/pricing/infra/chainlink"
	"github.com/fd1az/swap-router/business/pricing/infra/coingecko"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the source chain - private dependency. Order is priority:
	// the live stream first, then the on-chain feed, then the HTTP API.
	di.RegisterToken(c, pricingDI.PriceSources, func(sr di.ServiceRegistry) []app.PriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var sources []app.PriceSource

		if cfg.Pricing.StreamEnabled {
			stream, err := binance.NewStream(cfg.Pricing.BinanceWSURL, log)
			if err != nil {
				panic("failed to create binance stream: " + err.Error())
			}
			sources = append(sources, stream)
		}

		if cfg.Pricing.ChainlinkFeedAddress != "" {
			client := chainDI.GetEthereumClient(sr)
			feed, err := chainlink.NewFeed(client, common.HexToAddress(cfg.Pricing.ChainlinkFeedAddress), log)
			if err != nil {
				panic("failed to create chainlink feed: " + err.Error())
			}
			sources = append(sources, feed)
		}

		gecko, err := coingecko.NewClient(cfg.Pricing.CoinGeckoURL, cfg.Pricing.RequestsPerMinute, log)
		if err != nil {
			panic("failed to create coingecko client: " + err.Error())
		}
		sources = append(sources, gecko)

		return sources
	})

	// Register PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svcCfg := app.DefaultServiceConfig()
		if cfg.Pricing.CacheTTL > 0 {
			svcCfg.CacheTTL = cfg.Pricing.CacheTTL
		}
		if cfg.Pricing.StaleTimeout > 0 {
			svcCfg.StaleTimeout = cfg.Pricing.StaleTimeout
		}

		svc, err := app.NewPricingService(pricingDI.GetPriceSources(sr), svcCfg, log)
		if err != nil {
			panic("failed to create pricing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup launches stream consumption in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := pricingDI.GetPricingService(mono.Services())
	svc.StartStreams(ctx)

	log.Info(ctx, "pricing module started")
	return nil
}
