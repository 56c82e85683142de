// Package app contains application services and port definitions for the swap context.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

// TxHandle identifies a submitted transaction and the limits it was
// sent with, for downstream confirmation tracking.
type TxHandle struct {
	Hash     common.Hash
	GasLimit uint64
}

// VenueAdapter is the uniform capability every liquidity venue exposes:
// quote an output, estimate gas, and build/submit the real transaction.
// Adapters do not interpret revert reasons; that is the estimator's job.
type VenueAdapter interface {
	// Venue returns the adapter's identity.
	Venue() domain.Venue

	// Spender is the contract that must hold an ERC20 allowance for the
	// input token before Execute can succeed. It can vary per request:
	// curve approves the route's pool, everything else a fixed router.
	Spender(req domain.SwapRequest) common.Address

	// RequiresAllowance reports whether this request moves the input
	// token via transferFrom. A vault redeem burns from the holder and
	// needs no approval.
	RequiresAllowance(req domain.SwapRequest) bool

	// Supports reports whether the venue can serve the request's
	// mode and token pair. Must not perform any RPC.
	Supports(req domain.SwapRequest) bool

	// Quote returns the expected output for the input amount.
	Quote(ctx context.Context, req domain.SwapRequest, amount asset.Amount) (asset.Amount, error)

	// EstimateGas estimates gas for the state-changing swap call.
	EstimateGas(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount) (uint64, error)

	// Execute submits the swap with the given gas limit.
	Execute(ctx context.Context, req domain.SwapRequest, amount, minOut asset.Amount, gasLimit uint64) (*TxHandle, error)
}

// BasketRedeemer is implemented by the vault adapter: a mix redeem
// returns a pro-rata split across all reserve assets.
type BasketRedeemer interface {
	// QuoteRedeemMix returns the total output valued in protocol-token
	// units plus the per-reserve-asset split.
	QuoteRedeemMix(ctx context.Context, amount asset.Amount) (asset.Amount, []domain.CoinSplit, error)
}

// RedeemAllCapable is implemented by the vault adapter: when the
// requested amount is within a rounding unit of the full balance the
// redeem-all path burns everything instead of a parametrized amount.
type RedeemAllCapable interface {
	EstimateRedeemAllGas(ctx context.Context, minOut asset.Amount) (uint64, error)
	ExecuteRedeemAll(ctx context.Context, minOut asset.Amount, gasLimit uint64) (*TxHandle, error)
}

// Estimator wraps a venue adapter with eligibility rules and normalizes
// every outcome into a domain.Estimate. It never returns an error: all
// failures are recovered into a typed ineligible result.
type Estimator interface {
	Venue() domain.Venue
	Estimate(ctx context.Context, req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate
}

// SnapshotReader provides the latest allowance/balance view for the
// connected account. Eventually consistent; refreshed in the background.
type SnapshotReader interface {
	Balance(a *asset.Asset) (asset.Amount, bool)
	Allowance(token *asset.Asset, spender common.Address) (asset.Amount, bool)
}

// GasPricer supplies the current gas price in wei.
type GasPricer interface {
	GasPriceWei(ctx context.Context) (*big.Int, error)
}

// EthUsdSource supplies the current ETH/USD rate.
type EthUsdSource interface {
	EthUsdPrice(ctx context.Context) (decimal.Decimal, error)
}

// Approver submits an ERC20 approve transaction.
type Approver interface {
	Approve(ctx context.Context, token *asset.Asset, spender common.Address, amount asset.Amount) (*TxHandle, error)
}

// TxWaiter blocks until a transaction is mined, returning an error for
// a reverted receipt.
type TxWaiter interface {
	WaitMined(ctx context.Context, hash common.Hash) error
}

// Reporter renders published estimation rounds.
type Reporter interface {
	Start(ctx context.Context) error
	ReportRound(snap Snapshot)
	Stop() error
}

// Execution failure sentinels surfaced to the caller as user-facing
// decisions; never retried automatically.
var (
	ErrNoSelectedRoute      = errors.New("swap: no selected route to execute")
	ErrConfirmationRequired = errors.New("swap: selecting a materially worse route requires confirmation")
	ErrUserRejected         = errors.New("swap: transaction rejected by user")
)
