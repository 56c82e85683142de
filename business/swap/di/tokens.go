// Package di contains dependency injection tokens for the swap context.
package di

import (
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("swap.Orchestrator")
	Dispatcher   = di.NewToken[*app.Dispatcher]("swap.Dispatcher")
	Store        = di.NewToken[*app.Store]("swap.Store")
)

// Private dependency tokens - internal to swap module
var (
	VaultAdapter  = di.NewToken[app.VaultPort]("swap:vaultAdapter")
	VenueAdapters = di.NewToken[[]app.VenueAdapter]("swap:venueAdapters")
	Estimators    = di.NewToken[[]app.Estimator]("swap:estimators")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetDispatcher(c di.ServiceRegistry) *app.Dispatcher {
	return di.GetToken(c, Dispatcher)
}

func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}

func GetVaultAdapter(c di.ServiceRegistry) app.VaultPort {
	return di.GetToken(c, VaultAdapter)
}

func GetVenueAdapters(c di.ServiceRegistry) []app.VenueAdapter {
	return di.GetToken(c, VenueAdapters)
}

func GetEstimators(c di.ServiceRegistry) []app.Estimator {
	return di.GetToken(c, Estimators)
}
