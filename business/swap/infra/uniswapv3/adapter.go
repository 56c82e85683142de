// Package uniswapv3 adapts Uniswap V3 as a swap venue: a fixed pair
// table quoted through QuoterV2 and executed on the swap router.
package uniswapv3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

const (
	tracerName = "uniswapv3"
	meterName  = "uniswapv3"
)

var _ app.VenueAdapter = (*Adapter)(nil)

type adapterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Adapter implements the Uniswap V3 venue.
type Adapter struct {
	client    *ethereum.Client
	router    common.Address
	quoter    common.Address
	quoterABI abi.ABI
	routerABI abi.ABI
	paths     map[string]Path
	deadline  time.Duration
	logger    logger.LoggerInterface
	cb        *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *adapterMetrics
}

// NewAdapter creates the V3 adapter with the mainnet pair table:
// protocol-token pairs against the stable the deep pool trades in,
// two-pool paths for the remaining stables, and OETH against WETH.
func NewAdapter(
	client *ethereum.Client,
	cfg config.VenuesConfig,
	registry *asset.Registry,
	log logger.LoggerInterface,
) (*Adapter, error) {
	quoterABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(SwapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	paths, err := defaultPaths(registry, uint32(cfg.UniswapV3StableFee))
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		client:    client,
		router:    common.HexToAddress(cfg.UniswapV3Router),
		quoter:    common.HexToAddress(cfg.UniswapV3Quoter),
		quoterABI: quoterABI,
		routerABI: routerABI,
		paths:     paths,
		deadline:  cfg.SwapDeadline,
		logger:    log,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("uniswapv3-quoter")),
		tracer:    otel.Tracer(tracerName),
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
		"uniswapv3_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}
	a.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswapv3_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}
	a.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswapv3_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

// the 0.01% tier, where the stable-to-stable pools live
const feeTierLowest = 100

func defaultPaths(registry *asset.Registry, stableFee uint32) (map[string]Path, error) {
	get := func(id asset.AssetID) (*asset.Asset, error) {
		a, ok := registry.Get(id)
		if !ok {
			return nil, fmt.Errorf("%s not in registry", id)
		}
		return a, nil
	}

	ousd, err := get(asset.IDOUSD)
	if err != nil {
		return nil, err
	}
	usdt, err := get(asset.IDUSDT)
	if err != nil {
		return nil, err
	}
	usdc, err := get(asset.IDUSDC)
	if err != nil {
		return nil, err
	}
	dai, err := get(asset.IDDAI)
	if err != nil {
		return nil, err
	}
	oeth, err := get(asset.IDOETH)
	if err != nil {
		return nil, err
	}
	weth, err := get(asset.IDWETH)
	if err != nil {
		return nil, err
	}

	paths := map[string]Path{}
	add := func(in, out *asset.Asset, p Path) {
		paths[pairKey(in, out)] = p
	}

	// the deep OUSD pool trades against USDT
	add(ousd, usdt, Single(ousd.Address(), usdt.Address(), stableFee))
	add(usdt, ousd, Single(usdt.Address(), ousd.Address(), stableFee))

	for _, stable := range []*asset.Asset{usdc, dai} {
		add(ousd, stable, Through(ousd.Address(), usdt.Address(), stable.Address(), stableFee, feeTierLowest))
		add(stable, ousd, Through(stable.Address(), usdt.Address(), ousd.Address(), feeTierLowest, stableFee))
	}

	add(oeth, weth, Single(oeth.Address(), weth.Address(), stableFee))
	add(weth, oeth, Single(weth.Address(), oeth.Address(), stableFee))

	return paths, nil
}

func pairKey(in, out *asset.Asset) string {
	return strings.ToLower(in.Address().Hex()) + "->" + strings.ToLower(out.Address().Hex())
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueUniswapV3 }

func (a *Adapter) Spender(domain.SwapRequest) common.Address { return a.router }

func (a *Adapter) RequiresAllowance(req domain.SwapRequest) bool {
	in := req.InputAsset()
	return in != nil && !in.IsNative()
}

func (a *Adapter) Supports(req domain.SwapRequest) bool {
	in, out := req.InputAsset(), req.OutputAsset()
	if in == nil || out == nil || req.Coin.Mix || in.IsNative() {
		return false
	}
	_, ok := a.paths[pairKey(in, out)]
	return ok
}

func (a *Adapter) path(req domain.SwapRequest) (Path, error) {
	in, out := req.InputAsset(), req.OutputAsset()
	p, ok := a.paths[pairKey(in, out)]
	if !ok {
		return Path{}, apperror.New(apperror.CodeVenueUnsupported,
			apperror.WithContext(fmt.Sprintf("no v3 path %s->%s", in.Symbol(), out.Symbol())))
	}
	return p, nil
}

// Quote asks the quoter for the expected output along the pair's path.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error) {
	p, err := a.path(req)
	if err != nil {
		return asset.Amount{}, err
	}

	ctx, span := a.tracer.Start(ctx, "uniswapv3.quote",
		trace.WithAttributes(
			attribute.String("in", req.InputAsset().Symbol()),
			attribute.String("out", req.OutputAsset().Symbol()),
			attribute.Int("hops", p.Hops()),
		))
	defer span.End()

	start := time.Now()
	a.metrics.quotesTotal.Add(ctx, 1)

	var amountOut *big.Int
	if p.Hops() == 1 {
		amountOut, err = a.quoteSingle(ctx, p, amount.Raw())
	} else {
		amountOut, err = a.quoteMulti(ctx, p, amount.Raw())
	}

	a.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		a.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return asset.Amount{}, err
	}

	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quote received")
	return asset.NewAmount(req.OutputAsset(), amountOut), nil
}

func (a *Adapter) quoteSingle(ctx context.Context, p Path, amountIn *big.Int) (*big.Int, error) {
	callData, err := a.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           p.Tokens[0],
		TokenOut:          p.Tokens[1],
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(p.Fees[0])),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote: %w", err)
	}
	raw, err := a.callQuoter(ctx, callData)
	if err != nil {
		return nil, err
	}
	outputs, err := a.quoterABI.Unpack("quoteExactInputSingle", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	return outputs[0].(*big.Int), nil
}

func (a *Adapter) quoteMulti(ctx context.Context, p Path, amountIn *big.Int) (*big.Int, error) {
	encoded, err := p.Encode()
	if err != nil {
		return nil, err
	}
	callData, err := a.quoterABI.Pack("quoteExactInput", encoded, amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote: %w", err)
	}
	raw, err := a.callQuoter(ctx, callData)
	if err != nil {
		return nil, err
	}
	outputs, err := a.quoterABI.Unpack("quoteExactInput", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	return outputs[0].(*big.Int), nil
}

func (a *Adapter) callQuoter(ctx context.Context, callData []byte) ([]byte, error) {
	raw, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.quoter, callData)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("quoter call failed"))
	}
	return raw, nil
}

// callData builds the router call with a wall-clock deadline.
func (a *Adapter) callData(req domain.SwapRequest, amount, minOut asset.Amount) ([]byte, error) {
	p, err := a.path(req)
	if err != nil {
		return nil, err
	}
	deadline := big.NewInt(time.Now().Add(a.deadline).Unix())

	if p.Hops() == 1 {
		return a.routerABI.Pack("exactInputSingle", ExactInputSingleParams{
			TokenIn:           p.Tokens[0],
			TokenOut:          p.Tokens[1],
			Fee:               big.NewInt(int64(p.Fees[0])),
			Recipient:         a.client.Account(),
			Deadline:          deadline,
			AmountIn:          amount.Raw(),
			AmountOutMinimum:  minOut.Raw(),
			SqrtPriceLimitX96: big.NewInt(0),
		})
	}

	encoded, err := p.Encode()
	if err != nil {
		return nil, err
	}
	return a.routerABI.Pack("exactInput", ExactInputParams{
		Path:             encoded,
		Recipient:        a.client.Account(),
		Deadline:         deadline,
		AmountIn:         amount.Raw(),
		AmountOutMinimum: minOut.Raw(),
	})
}

func (a *Adapter) EstimateGas(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount) (uint64, error) {
	data, err := a.callData(req, amount, minOut)
	if err != nil {
		return 0, err
	}
	return a.client.EstimateGas(ctx, a.router, nil, data)
}

func (a *Adapter) Execute(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	data, err := a.callData(req, amount, minOut)
	if err != nil {
		return nil, err
	}
	hash, err := a.client.SendTx(ctx, a.router, nil, data, gasLimit)
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}
