// Package zapper adapts the protocol zapper: one-transaction mints from
// raw ETH or sfrxETH.
package zapper

import (
	"context"
	"fmt"
	"math/big"
	"strings"

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

// ZapperABI covers the two deposit paths.
const ZapperABI = `[
	{
		"inputs": [],
		"name": "deposit",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint256", "name": "minOETH", "type": "uint256"}
		],
		"name": "depositSFRXETH",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// erc4626ABI is the share-to-assets view used to quote sfrxETH.
const erc4626ABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "shares", "type": "uint256"}],
		"name": "convertToAssets",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var _ app.VenueAdapter = (*Adapter)(nil)

// Adapter implements the zapper venue. Mint only: ETH deposits convert
// 1:1, sfrxETH deposits convert at the wrapper's share price.
type Adapter struct {
	client     *ethereum.Client
	address    common.Address
	abi        abi.ABI
	vault4626  abi.ABI
	protocol   *asset.Asset
	ethAsset   *asset.Asset
	sfrxAsset  *asset.Asset // nil disables the sfrxETH path
	logger     logger.LoggerInterface
	cb         *circuitbreaker.CircuitBreaker[[]byte]
	tracer     trace.Tracer
}

func NewAdapter(
	client *ethereum.Client,
	address common.Address,
	protocol, ethAsset, sfrxAsset *asset.Asset,
	log logger.LoggerInterface,
) (*Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(ZapperABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse zapper ABI: %w", err)
	}
	vault4626, err := abi.JSON(strings.NewReader(erc4626ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc4626 ABI: %w", err)
	}
	return &Adapter{
		client:    client,
		address:   address,
		abi:       parsed,
		vault4626: vault4626,
		protocol:  protocol,
		ethAsset:  ethAsset,
		sfrxAsset: sfrxAsset,
		logger:    log,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("zapper")),
		tracer:    otel.Tracer("zapper"),
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueZapper }

func (a *Adapter) Spender(domain.SwapRequest) common.Address { return a.address }

func (a *Adapter) RequiresAllowance(req domain.SwapRequest) bool {
	return req.Coin.Asset != nil && !req.Coin.Asset.IsNative()
}

func (a *Adapter) Supports(req domain.SwapRequest) bool {
	if req.Mode != domain.ModeMint || !req.Protocol.Equals(a.protocol) {
		return false
	}
	if req.Coin.Asset == nil {
		return false
	}
	if req.Coin.Asset.Equals(a.ethAsset) {
		return true
	}
	return a.sfrxAsset != nil && req.Coin.Asset.Equals(a.sfrxAsset)
}

// Quote converts ETH 1:1 and sfrxETH at convertToAssets.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error) {
	ctx, span := a.tracer.Start(ctx, "zapper.quote",
		trace.WithAttributes(attribute.String("asset", amount.Asset().Symbol())))
	defer span.End()

	if amount.Asset().Equals(a.ethAsset) {
		return amount.Rescale(a.protocol), nil
	}

	data, err := a.vault4626.Pack("convertToAssets", amount.Raw())
	if err != nil {
		return asset.Amount{}, err
	}
	out, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.sfrxAsset.Address(), data)
	})
	if err != nil {
		return asset.Amount{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("convertToAssets call failed"))
	}
	results, err := a.vault4626.Unpack("convertToAssets", out)
	if err != nil {
		return asset.Amount{}, err
	}
	return asset.NewAmount(a.protocol, results[0].(*big.Int)), nil
}

func (a *Adapter) callData(req domain.SwapRequest, amount, minOut asset.Amount) ([]byte, *big.Int, error) {
	if amount.Asset().Equals(a.ethAsset) {
		data, err := a.abi.Pack("deposit")
		return data, amount.Raw(), err
	}
	data, err := a.abi.Pack("depositSFRXETH", amount.Raw(), minOut.Raw())
	return data, nil, err
}

func (a *Adapter) EstimateGas(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount) (uint64, error) {
	data, value, err := a.callData(req, amount, minOut)
	if err != nil {
		return 0, err
	}
	return a.client.EstimateGas(ctx, a.address, value, data)
}

func (a *Adapter) Execute(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	data, value, err := a.callData(req, amount, minOut)
	if err != nil {
		return nil, err
	}
	hash, err := a.client.SendTx(ctx, a.address, value, data, gasLimit)
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}
