package curve

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/asset"
)

// RouteKind distinguishes how a pair trades on curve.
type RouteKind int

const (
	// RouteDirect trades on a two-coin pool via exchange.
	RouteDirect RouteKind = iota

	// RouteUnderlying trades metapool underlying coins via
	// exchange_underlying.
	RouteUnderlying

	// RouteMulti chains pools through the registry router via
	// exchange_multiple.
	RouteMulti
)

// Route is one resolved trading path. Direct and underlying routes use
// Pool/I/J; multi routes use Path/SwapParams in the router's encoding.
type Route struct {
	Kind RouteKind
	Pool common.Address
	I, J int64

	Path       [9]common.Address
	SwapParams [4][3]uint64
}

// RouteTable maps ordered asset pairs to routes. Keys are built by
// routeKey, so lookups are case-insensitive on token addresses. Pairs
// absent from the table are unsupported without touching the chain.
type RouteTable map[string]Route

// routeKey builds the lookup key for an ordered pair. Native ETH maps
// to the curve placeholder so callers do not special-case it.
func routeKey(in, out *asset.Asset) string {
	return assetKey(in) + "->" + assetKey(out)
}

func assetKey(a *asset.Asset) string {
	if a.IsNative() {
		return strings.ToLower(ethPlaceholder)
	}
	return strings.ToLower(a.Address().Hex())
}

// Lookup resolves the route for a pair.
func (t RouteTable) Lookup(in, out *asset.Asset) (Route, bool) {
	r, ok := t[routeKey(in, out)]
	return r, ok
}

// Add registers a route for a pair.
func (t RouteTable) Add(in, out *asset.Asset, r Route) {
	t[routeKey(in, out)] = r
}

// underlyingIndex is the metapool underlying coin ordering: the
// protocol token at 0, then the base pool's coins.
var underlyingIndex = map[asset.AssetID]int64{
	asset.IDOUSD: 0,
	asset.IDDAI:  1,
	asset.IDUSDC: 2,
	asset.IDUSDT: 3,
}

// DefaultRoutes builds the mainnet route table: OUSD against the
// metapool's underlying stables, and OETH against raw ETH on its own
// pool.
func DefaultRoutes(metapool, oethPool common.Address, registry *asset.Registry) (RouteTable, error) {
	t := RouteTable{}

	ousd, ok := registry.Get(asset.IDOUSD)
	if !ok {
		return nil, fmt.Errorf("OUSD not in registry")
	}
	for id, j := range underlyingIndex {
		if id == asset.IDOUSD {
			continue
		}
		stable, ok := registry.Get(id)
		if !ok {
			return nil, fmt.Errorf("%s not in registry", id)
		}
		t.Add(ousd, stable, Route{Kind: RouteUnderlying, Pool: metapool, I: 0, J: j})
		t.Add(stable, ousd, Route{Kind: RouteUnderlying, Pool: metapool, I: j, J: 0})
	}

	oeth, ok := registry.Get(asset.IDOETH)
	if !ok {
		return nil, fmt.Errorf("OETH not in registry")
	}
	eth, ok := registry.Get(asset.IDETH)
	if !ok {
		return nil, fmt.Errorf("ETH not in registry")
	}
	t.Add(eth, oeth, Route{Kind: RouteDirect, Pool: oethPool, I: 0, J: 1})
	t.Add(oeth, eth, Route{Kind: RouteDirect, Pool: oethPool, I: 1, J: 0})

	return t, nil
}
