package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

// fallbackGasFn picks the conservative gas constant for a request when
// on-chain estimation is impossible.
type fallbackGasFn func(req domain.SwapRequest, amount asset.Amount) uint64

// EstimatorDeps bundles the collaborators shared by every estimator.
type EstimatorDeps struct {
	Snapshots SnapshotReader
	Cfg       config.SwapConfig
	Log       logger.LoggerInterface
}

// priceGate rejects quotes whose implied unit price breaches the sanity
// ceiling; it catches stale oracles and drained pools before they can
// win the ranking.
func (d EstimatorDeps) priceGate(in, out asset.Amount) domain.ErrorKind {
	outDec := out.ToDecimal()
	if outDec.IsZero() {
		return domain.ErrLiquidity
	}
	price := in.ToDecimal().Div(outDec)
	if price.GreaterThan(d.Cfg.PriceCeilingDecimal()) {
		return domain.ErrPriceTooHigh
	}
	return domain.ErrNone
}

// planGas fills in the gas figures for an eligible estimate. When the
// wallet lacks balance or allowance a real eth_estimateGas would revert,
// so the venue's historical worst-case constant is used instead and the
// estimate stays eligible for display. Otherwise the node estimate is
// authoritative and its failure makes the venue ineligible.
func (d EstimatorDeps) planGas(
	ctx context.Context,
	adapter VenueAdapter,
	req domain.SwapRequest,
	amounts domain.NormalizedAmounts,
	est domain.Estimate,
	fallback fallbackGasFn,
) domain.Estimate {
	in := req.InputAsset()

	hasFunds := false
	if bal, ok := d.Snapshots.Balance(in); ok {
		hasFunds, _ = bal.GreaterThanOrEqual(amounts.SwapAmount)
	}

	needsApprove := false
	if !in.IsNative() && adapter.RequiresAllowance(req) {
		allowance, ok := d.Snapshots.Allowance(in, adapter.Spender(req))
		if !ok {
			needsApprove = true
		} else if enough, _ := allowance.GreaterThanOrEqual(amounts.SwapAmount); !enough {
			needsApprove = true
		}
	}

	if !hasFunds || needsApprove {
		est.SwapGas = fallback(req, amounts.SwapAmount)
		est.GasUsed = est.SwapGas
		if needsApprove {
			est = est.WithApproval(d.Cfg.FallbackGas.Approve)
		}
		return est
	}

	gas, err := adapter.EstimateGas(ctx, req, amounts.SwapAmount, amounts.MinSwapAmount)
	if err != nil {
		kind := domain.ClassifyRevert(err)
		d.Log.Debug(ctx, "swap gas estimation reverted",
			"venue", adapter.Venue().String(),
			"kind", string(kind),
			"error", err.Error(),
		)
		return domain.Ineligible(adapter.Venue(), kind)
	}
	est.SwapGas = gas
	est.GasUsed = gas
	return est
}

// routeEstimator is the estimator for every AMM-style venue: supported
// pairs come from the adapter's static route knowledge, quotes and gas
// from the chain.
type routeEstimator struct {
	adapter  VenueAdapter
	deps     EstimatorDeps
	fallback fallbackGasFn
}

func (e *routeEstimator) Venue() domain.Venue { return e.adapter.Venue() }

func (e *routeEstimator) Estimate(ctx context.Context, req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate {
	v := e.adapter.Venue()
	if !e.adapter.Supports(req) {
		return domain.Ineligible(v, domain.ErrUnsupported)
	}

	out, err := e.adapter.Quote(ctx, req, amounts.SwapAmount)
	if err != nil {
		kind := domain.ClassifyRevert(err)
		e.deps.Log.Debug(ctx, "venue quote failed",
			"venue", v.String(), "kind", string(kind), "error", err.Error())
		return domain.Ineligible(v, kind)
	}
	if kind := e.deps.priceGate(amounts.SwapAmount, out); kind != domain.ErrNone {
		return domain.Ineligible(v, kind)
	}

	est := domain.Eligible(v, out, 0)
	return e.deps.planGas(ctx, e.adapter, req, amounts, est, e.fallback)
}

// NewZapperEstimator estimates the zapper's native-asset mint path.
func NewZapperEstimator(adapter VenueAdapter, deps EstimatorDeps) Estimator {
	return &routeEstimator{
		adapter: adapter,
		deps:    deps,
		fallback: func(domain.SwapRequest, asset.Amount) uint64 {
			return deps.Cfg.FallbackGas.Zapper
		},
	}
}

// NewCurveEstimator estimates swaps through the curve pool/registry
// exchange routes.
func NewCurveEstimator(adapter VenueAdapter, deps EstimatorDeps) Estimator {
	return &routeEstimator{
		adapter: adapter,
		deps:    deps,
		fallback: func(domain.SwapRequest, asset.Amount) uint64 {
			return deps.Cfg.FallbackGas.Curve
		},
	}
}

// NewUniswapV3Estimator estimates swaps quoted by the V3 quoter.
func NewUniswapV3Estimator(adapter VenueAdapter, deps EstimatorDeps) Estimator {
	return &routeEstimator{
		adapter: adapter,
		deps:    deps,
		fallback: func(domain.SwapRequest, asset.Amount) uint64 {
			return deps.Cfg.FallbackGas.UniswapV3
		},
	}
}

// NewUniswapV2Estimator estimates swaps through a V2-style router; the
// same shape serves both Uniswap V2 and SushiSwap deployments.
func NewUniswapV2Estimator(adapter VenueAdapter, deps EstimatorDeps) Estimator {
	fallback := deps.Cfg.FallbackGas.UniswapV2
	if adapter.Venue() == domain.VenueSushiswap {
		fallback = deps.Cfg.FallbackGas.Sushiswap
	}
	return &routeEstimator{
		adapter: adapter,
		deps:    deps,
		fallback: func(domain.SwapRequest, asset.Amount) uint64 {
			return fallback
		},
	}
}

// VaultPort is the full capability set of the vault adapter.
type VaultPort interface {
	VenueAdapter
	BasketRedeemer
	RedeemAllCapable
}

// vaultEstimator adds the vault-only paths: basket redeems with
// per-asset splits and the large-mint gas cliff.
type vaultEstimator struct {
	adapter VaultPort
	deps    EstimatorDeps
}

// NewVaultEstimator estimates mints and basket redeems against the vault.
func NewVaultEstimator(adapter VaultPort, deps EstimatorDeps) Estimator {
	return &vaultEstimator{adapter: adapter, deps: deps}
}

func (e *vaultEstimator) Venue() domain.Venue { return domain.VenueVault }

func (e *vaultEstimator) Estimate(ctx context.Context, req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate {
	if !e.adapter.Supports(req) {
		return domain.Ineligible(domain.VenueVault, domain.ErrUnsupported)
	}

	if req.Mode == domain.ModeRedeem && req.Coin.Mix {
		return e.estimateMixRedeem(ctx, req, amounts)
	}

	out, err := e.adapter.Quote(ctx, req, amounts.SwapAmount)
	if err != nil {
		kind := domain.ClassifyRevert(err)
		e.deps.Log.Debug(ctx, "vault quote failed",
			"kind", string(kind), "error", err.Error())
		return domain.Ineligible(domain.VenueVault, kind)
	}
	if kind := e.deps.priceGate(amounts.SwapAmount, out); kind != domain.ErrNone {
		return domain.Ineligible(domain.VenueVault, kind)
	}

	est := domain.Eligible(domain.VenueVault, out, 0)
	return e.deps.planGas(ctx, e.adapter, req, amounts, est, e.fallbackGas)
}

func (e *vaultEstimator) estimateMixRedeem(ctx context.Context, req domain.SwapRequest, amounts domain.NormalizedAmounts) domain.Estimate {
	out, splits, err := e.adapter.QuoteRedeemMix(ctx, amounts.SwapAmount)
	if err != nil {
		kind := domain.ClassifyRevert(err)
		e.deps.Log.Debug(ctx, "vault mix redeem quote failed",
			"kind", string(kind), "error", err.Error())
		return domain.Ineligible(domain.VenueVault, kind)
	}
	if kind := e.deps.priceGate(amounts.SwapAmount, out); kind != domain.ErrNone {
		return domain.Ineligible(domain.VenueVault, kind)
	}

	est := domain.Eligible(domain.VenueVault, out, 0)
	est.CoinSplits = splits
	return e.deps.planGas(ctx, e.adapter, req, amounts, est, e.fallbackGas)
}

// fallbackGas applies the large-mint cliff: past the threshold a mint
// can trigger a rebase plus strategy allocation and costs an order of
// magnitude more.
func (e *vaultEstimator) fallbackGas(req domain.SwapRequest, amount asset.Amount) uint64 {
	fg := e.deps.Cfg.FallbackGas
	if req.Mode == domain.ModeRedeem {
		return fg.VaultRedeem
	}
	threshold := decimal.NewFromFloat(fg.VaultMintLargeThreshold)
	if amount.ToDecimal().GreaterThan(threshold) {
		return fg.VaultMintLarge
	}
	return fg.VaultMint
}
