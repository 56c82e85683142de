// Package curve adapts curve pools as a swap venue. Supported pairs
// come from a static route table; anything else is rejected without an
// RPC round trip.
package curve

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "curve"
	meterName  = "curve"
)

var _ app.VenueAdapter = (*Adapter)(nil)

type adapterMetrics struct {
	quotesTotal metric.Int64Counter
	quoteErrors metric.Int64Counter
}

// Adapter implements the curve venue.
type Adapter struct {
	client  *ethereum.Client
	router  common.Address
	routes  RouteTable
	metaABI abi.ABI
	poolABI abi.ABI
	rtrABI  abi.ABI
	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *adapterMetrics
}

// NewAdapter creates a curve adapter over a pre-built route table.
func NewAdapter(
	client *ethereum.Client,
	router common.Address,
	routes RouteTable,
	log logger.LoggerInterface,
) (*Adapter, error) {
	metaABI, err := abi.JSON(strings.NewReader(MetaPoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metapool ABI: %w", err)
	}
	poolABI, err := abi.JSON(strings.NewReader(PlainPoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}
	rtrABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	a := &Adapter{
		client:  client,
		router:  router,
		routes:  routes,
		metaABI: metaABI,
		poolABI: poolABI,
		rtrABI:  rtrABI,
		logger:  log,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("curve")),
		tracer:  otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return a, nil
}

func (a *Adapter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &adapterMetrics{}
	a.metrics.quotesTotal, err = meter.Int64Counter(
		"curve_quotes_total",
		metric.WithDescription("Total curve quote requests"),
	)
	if err != nil {
		return err
	}
	a.metrics.quoteErrors, err = meter.Int64Counter(
		"curve_quote_errors_total",
		metric.WithDescription("Total curve quote errors"),
	)
	return err
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueCurve }

// Spender is the contract the exchange call runs on: the route's pool
// for direct swaps, the registry router for multi-pool routes.
func (a *Adapter) Spender(req domain.SwapRequest) common.Address {
	route, ok := a.routes.Lookup(req.InputAsset(), req.OutputAsset())
	if !ok || route.Kind == RouteMulti {
		return a.router
	}
	return route.Pool
}

func (a *Adapter) RequiresAllowance(req domain.SwapRequest) bool {
	in := req.InputAsset()
	return in != nil && !in.IsNative()
}

func (a *Adapter) Supports(req domain.SwapRequest) bool {
	in, out := req.InputAsset(), req.OutputAsset()
	if in == nil || out == nil || req.Coin.Mix {
		return false
	}
	_, ok := a.routes.Lookup(in, out)
	return ok
}

// Quote asks the pool (or router) for the expected output.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error) {
	in, out := req.InputAsset(), req.OutputAsset()
	route, ok := a.routes.Lookup(in, out)
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeVenueUnsupported,
			apperror.WithContext(fmt.Sprintf("no curve route %s->%s", in.Symbol(), out.Symbol())))
	}

	ctx, span := a.tracer.Start(ctx, "curve.quote",
		trace.WithAttributes(
			attribute.String("in", in.Symbol()),
			attribute.String("out", out.Symbol()),
		))
	defer span.End()
	a.metrics.quotesTotal.Add(ctx, 1)

	var (
		data []byte
		to   common.Address
		err  error
	)
	switch route.Kind {
	case RouteUnderlying:
		to = route.Pool
		data, err = a.metaABI.Pack("get_dy_underlying",
			big.NewInt(route.I), big.NewInt(route.J), amount.Raw())
	case RouteDirect:
		to = route.Pool
		data, err = a.poolABI.Pack("get_dy",
			big.NewInt(route.I), big.NewInt(route.J), amount.Raw())
	case RouteMulti:
		to = a.router
		data, err = a.rtrABI.Pack("get_exchange_multiple_amount",
			route.Path, swapParamsBig(route.SwapParams), amount.Raw())
	}
	if err != nil {
		return asset.Amount{}, fmt.Errorf("failed to encode curve quote: %w", err)
	}

	raw, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, to, data)
	})
	if err != nil {
		a.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		return asset.Amount{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("curve quote call failed"))
	}

	dy, err := a.unpackAmount(route.Kind, raw)
	if err != nil {
		return asset.Amount{}, err
	}
	return asset.NewAmount(out, dy), nil
}

func (a *Adapter) unpackAmount(kind RouteKind, raw []byte) (*big.Int, error) {
	var (
		results []any
		err     error
	)
	switch kind {
	case RouteUnderlying:
		results, err = a.metaABI.Unpack("get_dy_underlying", raw)
	case RouteDirect:
		results, err = a.poolABI.Unpack("get_dy", raw)
	case RouteMulti:
		results, err = a.rtrABI.Unpack("get_exchange_multiple_amount", raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode curve quote: %w", err)
	}
	return results[0].(*big.Int), nil
}

// callData builds the exchange call. ETH input legs attach value.
func (a *Adapter) callData(req domain.SwapRequest, amount, minOut asset.Amount) ([]byte, common.Address, *big.Int, error) {
	in, out := req.InputAsset(), req.OutputAsset()
	route, ok := a.routes.Lookup(in, out)
	if !ok {
		return nil, common.Address{}, nil, apperror.New(apperror.CodeVenueUnsupported,
			apperror.WithContext(fmt.Sprintf("no curve route %s->%s", in.Symbol(), out.Symbol())))
	}

	var value *big.Int
	if in.IsNative() {
		value = amount.Raw()
	}

	switch route.Kind {
	case RouteUnderlying:
		data, err := a.metaABI.Pack("exchange_underlying",
			big.NewInt(route.I), big.NewInt(route.J), amount.Raw(), minOut.Raw())
		return data, route.Pool, value, err
	case RouteDirect:
		data, err := a.poolABI.Pack("exchange",
			big.NewInt(route.I), big.NewInt(route.J), amount.Raw(), minOut.Raw())
		return data, route.Pool, value, err
	default:
		data, err := a.rtrABI.Pack("exchange_multiple",
			route.Path, swapParamsBig(route.SwapParams), amount.Raw(), minOut.Raw())
		return data, a.router, value, err
	}
}

func (a *Adapter) EstimateGas(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount) (uint64, error) {
	data, to, value, err := a.callData(req, amount, minOut)
	if err != nil {
		return 0, err
	}
	return a.client.EstimateGas(ctx, to, value, data)
}

func (a *Adapter) Execute(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	data, to, value, err := a.callData(req, amount, minOut)
	if err != nil {
		return nil, err
	}
	hash, err := a.client.SendTx(ctx, to, value, data, gasLimit)
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}

// swapParamsBig converts the compact table representation into the
// uint256 matrix the router ABI expects.
func swapParamsBig(p [4][3]uint64) [4][3]*big.Int {
	var out [4][3]*big.Int
	for i := range p {
		for j := range p[i] {
			out[i][j] = new(big.Int).SetUint64(p[i][j])
		}
	}
	return out
}
