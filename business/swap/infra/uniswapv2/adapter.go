// Package uniswapv2 adapts V2-style routers as swap venues. One adapter
// shape serves both Uniswap V2 and SushiSwap, parameterized by router
// address and venue identity.
package uniswapv2

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
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/chain/infra/ethereum"
	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/circuitbreaker"
	"github.com/fd1az/swap-router/internal/logger"
)

// RouterABI covers quoting and exact-input token swaps.
const RouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var _ app.VenueAdapter = (*Adapter)(nil)

// Adapter implements a V2-style venue. Pairs route directly against the
// bridge stable, or through it when neither side is the bridge.
type Adapter struct {
	venue    domain.Venue
	client   *ethereum.Client
	router   common.Address
	abi      abi.ABI
	protocol *asset.Asset
	bridge   *asset.Asset // the stable the deep pools trade against
	stables  []*asset.Asset
	deadline time.Duration
	logger   logger.LoggerInterface
	cb       *circuitbreaker.CircuitBreaker[[]byte]
	tracer   trace.Tracer
}

// NewAdapter creates a V2-style adapter. venue must be VenueUniswapV2
// or VenueSushiswap.
func NewAdapter(
	venue domain.Venue,
	client *ethereum.Client,
	router common.Address,
	protocol, bridge *asset.Asset,
	stables []*asset.Asset,
	deadline time.Duration,
	log logger.LoggerInterface,
) (*Adapter, error) {
	if venue != domain.VenueUniswapV2 && venue != domain.VenueSushiswap {
		return nil, fmt.Errorf("venue %s is not v2-style", venue)
	}
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	return &Adapter{
		venue:    venue,
		client:   client,
		router:   router,
		abi:      parsed,
		protocol: protocol,
		bridge:   bridge,
		stables:  stables,
		deadline: deadline,
		logger:   log,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig(venue.String())),
		tracer:   otel.Tracer(venue.String()),
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return a.venue }

func (a *Adapter) Spender(domain.SwapRequest) common.Address { return a.router }

func (a *Adapter) RequiresAllowance(req domain.SwapRequest) bool {
	in := req.InputAsset()
	return in != nil && !in.IsNative()
}

func (a *Adapter) Supports(req domain.SwapRequest) bool {
	if req.Coin.Mix || !req.Protocol.Equals(a.protocol) {
		return false
	}
	coin := req.Coin.Asset
	if coin == nil || coin.IsNative() {
		return false
	}
	for _, s := range a.stables {
		if s.Equals(coin) {
			return true
		}
	}
	return false
}

// swapPath routes through the bridge stable unless one side is it.
func (a *Adapter) swapPath(in, out *asset.Asset) []common.Address {
	if in.Equals(a.bridge) || out.Equals(a.bridge) {
		return []common.Address{in.Address(), out.Address()}
	}
	return []common.Address{in.Address(), a.bridge.Address(), out.Address()}
}

// Quote returns the final leg of getAmountsOut.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error) {
	in, out := req.InputAsset(), req.OutputAsset()
	path := a.swapPath(in, out)

	ctx, span := a.tracer.Start(ctx, a.venue.String()+".quote",
		trace.WithAttributes(
			attribute.String("in", in.Symbol()),
			attribute.String("out", out.Symbol()),
			attribute.Int("path_len", len(path)),
		))
	defer span.End()

	callData, err := a.abi.Pack("getAmountsOut", amount.Raw(), path)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("failed to encode getAmountsOut: %w", err)
	}
	raw, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.router, callData)
	})
	if err != nil {
		span.RecordError(err)
		return asset.Amount{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("getAmountsOut call failed"))
	}
	outputs, err := a.abi.Unpack("getAmountsOut", raw)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("failed to decode getAmountsOut: %w", err)
	}
	amounts := outputs[0].([]*big.Int)
	if len(amounts) != len(path) {
		return asset.Amount{}, fmt.Errorf("unexpected amounts length: %d", len(amounts))
	}
	return asset.NewAmount(out, amounts[len(amounts)-1]), nil
}

func (a *Adapter) callData(req domain.SwapRequest, amount, minOut asset.Amount) ([]byte, error) {
	path := a.swapPath(req.InputAsset(), req.OutputAsset())
	deadline := big.NewInt(time.Now().Add(a.deadline).Unix())
	return a.abi.Pack("swapExactTokensForTokens",
		amount.Raw(), minOut.Raw(), path, a.client.Account(), deadline)
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
