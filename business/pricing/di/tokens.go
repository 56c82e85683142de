// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/swap-router/business/pricing/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	PriceSources = di.NewToken[[]app.PriceSource]("pricing:priceSources")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetPriceSources(c di.ServiceRegistry) []app.PriceSource {
	return di.GetToken(c, PriceSources)
}
