package app_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/logger"
)

var testLog = logger.New(io.Discard, logger.LevelDebug, "test", nil)

func testSwapCfg() config.SwapConfig {
	return config.SwapConfig{
		Protocol:     "OUSD",
		PriceCeiling: 1.25,
		GasBufferPct: 10,
		FallbackGas: config.FallbackGasConfig{
			VaultMint:               220_000,
			VaultMintLarge:          2_900_000,
			VaultRedeem:             1_500_000,
			Zapper:                  505_000,
			Curve:                   350_000,
			UniswapV3:               165_000,
			UniswapV2:               175_000,
			Sushiswap:               175_000,
			Approve:                 52_000,
			VaultMintLargeThreshold: 25_000,
		},
	}
}

// fakeAdapter scripts every venue capability for estimator tests.
type fakeAdapter struct {
	venue      domain.Venue
	supports   bool
	quoteOut   asset.Amount
	quoteErr   error
	gas        uint64
	gasErr     error
	needsAllow bool
	spender    common.Address
}

func (f *fakeAdapter) Venue() domain.Venue                       { return f.venue }
func (f *fakeAdapter) Spender(domain.SwapRequest) common.Address { return f.spender }
func (f *fakeAdapter) RequiresAllowance(domain.SwapRequest) bool { return f.needsAllow }
func (f *fakeAdapter) Supports(domain.SwapRequest) bool          { return f.supports }

func (f *fakeAdapter) Quote(context.Context, domain.SwapRequest, asset.Amount) (asset.Amount, error) {
	return f.quoteOut, f.quoteErr
}

func (f *fakeAdapter) EstimateGas(context.Context, domain.SwapRequest, asset.Amount, asset.Amount) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeAdapter) Execute(context.Context, domain.SwapRequest, asset.Amount, asset.Amount, uint64) (*app.TxHandle, error) {
	return &app.TxHandle{}, nil
}

// fakeSnapshots serves scripted balances and allowances.
type fakeSnapshots struct {
	balances   map[*asset.Asset]asset.Amount
	allowances map[*asset.Asset]asset.Amount
}

func (f *fakeSnapshots) Balance(a *asset.Asset) (asset.Amount, bool) {
	amt, ok := f.balances[a]
	return amt, ok
}

func (f *fakeSnapshots) Allowance(token *asset.Asset, _ common.Address) (asset.Amount, bool) {
	amt, ok := f.allowances[token]
	return amt, ok
}

func whole(a *asset.Asset, n int64) asset.Amount {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals())), nil)
	return asset.NewAmount(a, new(big.Int).Mul(big.NewInt(n), unit))
}

func normalized(t *testing.T, req domain.SwapRequest) domain.NormalizedAmounts {
	t.Helper()
	amounts, err := domain.Normalize(req.Amount, req.InputAsset(), req.OutputAsset(), &req.Slippage)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return amounts
}

func richSnapshots(req domain.SwapRequest) *fakeSnapshots {
	in := req.InputAsset()
	return &fakeSnapshots{
		balances:   map[*asset.Asset]asset.Amount{in: whole(in, 1_000_000)},
		allowances: map[*asset.Asset]asset.Amount{in: whole(in, 1_000_000)},
	}
}

func TestRouteEstimator_EligiblePath(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:    domain.VenueCurve,
		supports: true,
		quoteOut: whole(asset.OUSD, 100),
		gas:      150_000,
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewCurveEstimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if !est.CanSwap {
		t.Fatalf("ineligible: %s", est.Err)
	}
	if est.SwapGas != 150_000 || est.ApproveNeeded {
		t.Errorf("gas = %d approve=%v, want node estimate without approval", est.SwapGas, est.ApproveNeeded)
	}
	if !est.AmountReceived.Equals(whole(asset.OUSD, 100)) {
		t.Errorf("received = %s", est.AmountReceived)
	}
}

func TestRouteEstimator_Unsupported(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{venue: domain.VenueUniswapV3, supports: false}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewUniswapV3Estimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if est.CanSwap || est.Err != domain.ErrUnsupported {
		t.Errorf("estimate = %+v, want unsupported", est)
	}
}

func TestRouteEstimator_QuoteRevertClassified(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:    domain.VenueUniswapV2,
		supports: true,
		quoteErr: errors.New("execution reverted: INSUFFICIENT OUTPUT AMOUNT"),
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewUniswapV2Estimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if est.CanSwap || est.Err != domain.ErrNotEnoughFundsContract {
		t.Errorf("estimate = %+v, want contract funds error", est)
	}
}

func TestRouteEstimator_PriceCeiling(t *testing.T) {
	req := mintDAI("100")
	// 100 DAI in, 50 OUSD out: implied price 2.0 breaches the 1.25 ceiling.
	adapter := &fakeAdapter{
		venue:    domain.VenueCurve,
		supports: true,
		quoteOut: whole(asset.OUSD, 50),
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewCurveEstimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if est.CanSwap || est.Err != domain.ErrPriceTooHigh {
		t.Errorf("estimate = %+v, want price gate rejection", est)
	}
}

func TestRouteEstimator_ZeroQuoteIsLiquidityError(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:    domain.VenueCurve,
		supports: true,
		quoteOut: asset.Zero(asset.OUSD),
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewCurveEstimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if est.CanSwap || est.Err != domain.ErrLiquidity {
		t.Errorf("estimate = %+v, want liquidity error", est)
	}
}

func TestRouteEstimator_MissingAllowanceUsesFallbackGas(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:      domain.VenueCurve,
		supports:   true,
		quoteOut:   whole(asset.OUSD, 100),
		needsAllow: true,
		gasErr:     errors.New("should not call the node"),
	}
	snaps := &fakeSnapshots{
		balances:   map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1000)},
		allowances: map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1)},
	}
	deps := app.EstimatorDeps{Snapshots: snaps, Cfg: testSwapCfg(), Log: testLog}

	est := app.NewCurveEstimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if !est.CanSwap {
		t.Fatalf("ineligible: %s", est.Err)
	}
	if !est.ApproveNeeded {
		t.Error("approval not flagged")
	}
	if est.SwapGas != 350_000 || est.ApproveGas != 52_000 {
		t.Errorf("gas = %d/%d, want curve fallback plus approve", est.SwapGas, est.ApproveGas)
	}
	if est.GasUsed != 402_000 {
		t.Errorf("total gas = %d, want 402000", est.GasUsed)
	}
}

func TestRouteEstimator_InsufficientBalanceStaysEligible(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:    domain.VenueUniswapV3,
		supports: true,
		quoteOut: whole(asset.OUSD, 100),
		gasErr:   errors.New("should not call the node"),
	}
	snaps := &fakeSnapshots{
		balances:   map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1)},
		allowances: map[*asset.Asset]asset.Amount{asset.DAI: whole(asset.DAI, 1_000_000)},
	}
	deps := app.EstimatorDeps{Snapshots: snaps, Cfg: testSwapCfg(), Log: testLog}

	est := app.NewUniswapV3Estimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if !est.CanSwap {
		t.Fatalf("ineligible: %s", est.Err)
	}
	if est.SwapGas != 165_000 {
		t.Errorf("gas = %d, want uniswap v3 fallback", est.SwapGas)
	}
}

func TestRouteEstimator_NodeGasRevertMakesIneligible(t *testing.T) {
	req := mintDAI("100")
	adapter := &fakeAdapter{
		venue:    domain.VenueCurve,
		supports: true,
		quoteOut: whole(asset.OUSD, 100),
		gasErr:   errors.New("execution reverted: Exchange resulted in fewer coins than expected"),
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewCurveEstimator(adapter, deps).Estimate(context.Background(), req, normalized(t, req))
	if est.CanSwap || est.Err != domain.ErrNotEnoughFundsContract {
		t.Errorf("estimate = %+v, want ineligible on node revert", est)
	}
}

// fakeVault adds the vault-only ports on top of the scripted adapter.
type fakeVault struct {
	fakeAdapter
	mixOut    asset.Amount
	mixSplits []domain.CoinSplit
	mixErr    error
}

func (f *fakeVault) QuoteRedeemMix(context.Context, asset.Amount) (asset.Amount, []domain.CoinSplit, error) {
	return f.mixOut, f.mixSplits, f.mixErr
}

func (f *fakeVault) EstimateRedeemAllGas(context.Context, asset.Amount) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeVault) ExecuteRedeemAll(context.Context, asset.Amount, uint64) (*app.TxHandle, error) {
	return &app.TxHandle{}, nil
}

func TestVaultEstimator_MixRedeemCarriesSplits(t *testing.T) {
	req := domain.SwapRequest{
		Mode:     domain.ModeRedeem,
		Amount:   "100",
		Protocol: asset.OUSD,
		Coin:     domain.MixCoin(),
	}
	splits := []domain.CoinSplit{
		{Coin: asset.DAI, Amount: whole(asset.DAI, 40)},
		{Coin: asset.USDC, Amount: whole(asset.USDC, 35)},
		{Coin: asset.USDT, Amount: whole(asset.USDT, 25)},
	}
	vault := &fakeVault{
		fakeAdapter: fakeAdapter{venue: domain.VenueVault, supports: true, gas: 900_000},
		mixOut:      whole(asset.OUSD, 100),
		mixSplits:   splits,
	}
	deps := app.EstimatorDeps{Snapshots: richSnapshots(req), Cfg: testSwapCfg(), Log: testLog}

	est := app.NewVaultEstimator(vault, deps).Estimate(context.Background(), req, normalized(t, req))
	if !est.CanSwap {
		t.Fatalf("ineligible: %s", est.Err)
	}
	if len(est.CoinSplits) != 3 {
		t.Fatalf("splits = %d, want 3", len(est.CoinSplits))
	}
	if est.CoinSplits[0].Coin != asset.DAI {
		t.Errorf("first split = %s", est.CoinSplits[0].Coin.Symbol())
	}
}

func TestVaultEstimator_LargeMintGasCliff(t *testing.T) {
	cfg := testSwapCfg()
	deps := app.EstimatorDeps{Cfg: cfg, Log: testLog}

	tests := []struct {
		name    string
		amount  string
		wantGas uint64
	}{
		{"small_mint", "100", cfg.FallbackGas.VaultMint},
		{"at_threshold", "25000", cfg.FallbackGas.VaultMint},
		{"past_threshold", "25001", cfg.FallbackGas.VaultMintLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mintDAI(tt.amount)
			// No balance on record: gas falls back to the constant.
			vault := &fakeVault{fakeAdapter: fakeAdapter{
				venue:    domain.VenueVault,
				supports: true,
				quoteOut: whole(asset.OUSD, 1),
				gasErr:   errors.New("should not call the node"),
			}}
			// Keep the quote under the price ceiling for every amount.
			vault.quoteOut = normalized(t, req).SwapAmount.Rescale(asset.OUSD)

			d := deps
			d.Snapshots = &fakeSnapshots{}

			est := app.NewVaultEstimator(vault, d).Estimate(context.Background(), req, normalized(t, req))
			if !est.CanSwap {
				t.Fatalf("ineligible: %s", est.Err)
			}
			if est.SwapGas != tt.wantGas {
				t.Errorf("gas = %d, want %d", est.SwapGas, tt.wantGas)
			}
		})
	}
}

func TestVaultEstimator_RedeemFallbackGas(t *testing.T) {
	req := domain.SwapRequest{
		Mode:     domain.ModeRedeem,
		Amount:   "50",
		Protocol: asset.OUSD,
		Coin:     domain.MixCoin(),
	}
	vault := &fakeVault{
		fakeAdapter: fakeAdapter{venue: domain.VenueVault, supports: true},
		mixOut:      whole(asset.OUSD, 50),
	}
	deps := app.EstimatorDeps{Snapshots: &fakeSnapshots{}, Cfg: testSwapCfg(), Log: testLog}

	est := app.NewVaultEstimator(vault, deps).Estimate(context.Background(), req, normalized(t, req))
	if !est.CanSwap {
		t.Fatalf("ineligible: %s", est.Err)
	}
	if est.SwapGas != 1_500_000 {
		t.Errorf("gas = %d, want redeem fallback", est.SwapGas)
	}
}
