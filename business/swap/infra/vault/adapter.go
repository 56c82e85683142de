// Package vault adapts the protocol vault as a swap venue: oracle-priced
// mints and pro-rata basket redeems.
package vault

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

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

const tracerName = "vault"

var oneUnit18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Ensure Adapter implements the full vault port.
var _ app.VaultPort = (*Adapter)(nil)

// Adapter implements the vault venue.
type Adapter struct {
	client   *ethereum.Client
	address  common.Address
	abi      abi.ABI
	protocol *asset.Asset
	reserves []*asset.Asset
	registry *asset.Registry
	logger   logger.LoggerInterface
	cb       *circuitbreaker.CircuitBreaker[[]byte]
	tracer   trace.Tracer

	// getAllAssets ordering, loaded once on first basket quote
	assetsMu  sync.Mutex
	allAssets []common.Address
}

// NewAdapter creates the vault adapter. reserves is the closed set of
// assets the vault mints against.
func NewAdapter(
	client *ethereum.Client,
	address common.Address,
	protocol *asset.Asset,
	reserves []*asset.Asset,
	registry *asset.Registry,
	log logger.LoggerInterface,
) (*Adapter, error) {
	parsed, err := abi.JSON(strings.NewReader(VaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	return &Adapter{
		client:   client,
		address:  address,
		abi:      parsed,
		protocol: protocol,
		reserves: reserves,
		registry: registry,
		logger:   log,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("vault")),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

func (a *Adapter) Venue() domain.Venue { return domain.VenueVault }

func (a *Adapter) Spender(domain.SwapRequest) common.Address { return a.address }

// RequiresAllowance: mints pull the reserve asset via transferFrom;
// redeems burn from the holder directly.
func (a *Adapter) RequiresAllowance(req domain.SwapRequest) bool {
	return req.Mode == domain.ModeMint
}

// Supports: the vault mints against its reserve assets and redeems
// only to the full basket mix.
func (a *Adapter) Supports(req domain.SwapRequest) bool {
	if !req.Protocol.Equals(a.protocol) {
		return false
	}
	if req.Mode == domain.ModeRedeem {
		return req.Coin.Mix
	}
	if req.Coin.Asset == nil {
		return false
	}
	for _, r := range a.reserves {
		if r.Equals(req.Coin.Asset) {
			return true
		}
	}
	return false
}

// Quote prices a mint at the vault's mint oracle, capped at one unit.
func (a *Adapter) Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error) {
	if req.Mode != domain.ModeMint {
		return asset.Amount{}, apperror.New(apperror.CodeVenueUnsupported,
			apperror.WithContext("vault quotes single-asset mints only"))
	}

	ctx, span := a.tracer.Start(ctx, "vault.quote_mint",
		trace.WithAttributes(attribute.String("asset", amount.Asset().Symbol())))
	defer span.End()

	amount18 := amount.Rescale(a.protocol)

	price, err := a.priceUnitMint(ctx, amount.Asset())
	if err != nil {
		// Older vault deployments lack the price view; mint is 1:1 then.
		a.logger.Debug(ctx, "mint price view unavailable, quoting 1:1", "error", err.Error())
		return amount18, nil
	}

	out := new(big.Int).Mul(amount18.Raw(), price)
	out.Div(out, oneUnit18)
	return asset.NewAmount(a.protocol, out), nil
}

func (a *Adapter) priceUnitMint(ctx context.Context, reserve *asset.Asset) (*big.Int, error) {
	data, err := a.abi.Pack("priceUnitMint", reserve.Address())
	if err != nil {
		return nil, err
	}
	out, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.address, data)
	})
	if err != nil {
		return nil, err
	}
	results, err := a.abi.Unpack("priceUnitMint", out)
	if err != nil {
		return nil, err
	}
	price := results[0].(*big.Int)
	// mint never credits above peg
	if price.Cmp(oneUnit18) > 0 {
		price = oneUnit18
	}
	return price, nil
}

// QuoteRedeemMix quotes a basket redeem: the per-asset outputs the
// vault would pay and their total valued in protocol-token units.
func (a *Adapter) QuoteRedeemMix(ctx context.Context, amount asset.Amount) (asset.Amount, []domain.CoinSplit, error) {
	ctx, span := a.tracer.Start(ctx, "vault.quote_redeem_mix",
		trace.WithAttributes(attribute.String("amount", amount.String())))
	defer span.End()

	assets, err := a.vaultAssets(ctx)
	if err != nil {
		return asset.Amount{}, nil, err
	}

	data, err := a.abi.Pack("calculateRedeemOutputs", amount.Raw())
	if err != nil {
		return asset.Amount{}, nil, fmt.Errorf("failed to encode calculateRedeemOutputs: %w", err)
	}
	out, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.address, data)
	})
	if err != nil {
		return asset.Amount{}, nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("calculateRedeemOutputs call failed"))
	}
	results, err := a.abi.Unpack("calculateRedeemOutputs", out)
	if err != nil {
		return asset.Amount{}, nil, fmt.Errorf("failed to decode calculateRedeemOutputs: %w", err)
	}
	outputs := results[0].([]*big.Int)
	if len(outputs) != len(assets) {
		return asset.Amount{}, nil, fmt.Errorf("redeem outputs length %d does not match vault assets %d",
			len(outputs), len(assets))
	}

	splits := make([]domain.CoinSplit, 0, len(outputs))
	total := asset.Zero(a.protocol)
	for i, raw := range outputs {
		if raw.Sign() == 0 {
			continue
		}
		coin, ok := a.registry.GetByAddress(assets[i].Hex())
		if !ok {
			return asset.Amount{}, nil, fmt.Errorf("vault asset %s not in registry", assets[i].Hex())
		}
		split := asset.NewAmount(coin, raw)
		splits = append(splits, domain.CoinSplit{Coin: coin, Amount: split})
		total, err = total.Add(split.Rescale(a.protocol))
		if err != nil {
			return asset.Amount{}, nil, err
		}
	}
	return total, splits, nil
}

// vaultAssets returns the vault's asset ordering, cached after the
// first read; the set changes only through governance.
func (a *Adapter) vaultAssets(ctx context.Context) ([]common.Address, error) {
	a.assetsMu.Lock()
	defer a.assetsMu.Unlock()
	if a.allAssets != nil {
		return a.allAssets, nil
	}

	data, err := a.abi.Pack("getAllAssets")
	if err != nil {
		return nil, err
	}
	out, err := a.cb.Execute(func() ([]byte, error) {
		return a.client.CallContract(ctx, a.address, data)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("getAllAssets call failed"))
	}
	results, err := a.abi.Unpack("getAllAssets", out)
	if err != nil {
		return nil, err
	}
	a.allAssets = results[0].([]common.Address)
	return a.allAssets, nil
}

func (a *Adapter) callData(req domain.SwapRequest, amount, minOut asset.Amount) ([]byte, error) {
	if req.Mode == domain.ModeMint {
		return a.abi.Pack("mint", amount.Asset().Address(), amount.Raw(), minOut.Raw())
	}
	return a.abi.Pack("redeem", amount.Raw(), minOut.Raw())
}

// EstimateGas estimates the mint or redeem call.
func (a *Adapter) EstimateGas(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount) (uint64, error) {
	data, err := a.callData(req, amount, minOut)
	if err != nil {
		return 0, err
	}
	return a.client.EstimateGas(ctx, a.address, nil, data)
}

// Execute submits the mint or redeem.
func (a *Adapter) Execute(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	data, err := a.callData(req, amount, minOut)
	if err != nil {
		return nil, err
	}
	hash, err := a.client.SendTx(ctx, a.address, nil, data, gasLimit)
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}

// EstimateRedeemAllGas estimates burning the entire balance.
func (a *Adapter) EstimateRedeemAllGas(ctx context.Context, minOut asset.Amount) (uint64, error) {
	data, err := a.abi.Pack("redeemAll", minOut.Raw())
	if err != nil {
		return 0, err
	}
	return a.client.EstimateGas(ctx, a.address, nil, data)
}

// ExecuteRedeemAll burns the entire balance.
func (a *Adapter) ExecuteRedeemAll(ctx context.Context, minOut asset.Amount, gasLimit uint64) (*app.TxHandle, error) {
	data, err := a.abi.Pack("redeemAll", minOut.Raw())
	if err != nil {
		return nil, err
	}
	hash, err := a.client.SendTx(ctx, a.address, nil, data, gasLimit)
	if err != nil {
		return nil, err
	}
	return &app.TxHandle{Hash: hash, GasLimit: gasLimit}, nil
}
