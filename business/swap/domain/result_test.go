package domain_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

func ousd(whole int64) asset.Amount {
	raw := new(big.Int).Mul(big.NewInt(whole), big.NewInt(1e18))
	return asset.NewAmount(asset.OUSD, raw)
}

func TestRank_BestIsCheapestEffectivePrice(t *testing.T) {
	input := asset.NewAmount(asset.DAI, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)))
	gasPrice := big.NewInt(20_000_000_000) // 20 gwei
	ethUsd := decimal.NewFromInt(2000)

	estimates := []domain.Estimate{
		domain.Eligible(domain.VenueVault, ousd(100), 200_000),
		domain.Eligible(domain.VenueCurve, ousd(99), 150_000),
		domain.Ineligible(domain.VenueUniswapV3, domain.ErrLiquidity),
	}

	ranked := domain.Rank(estimates, input, gasPrice, ethUsd)

	// Vault: (100 + 8) / 100 = 1.08; Curve: (100 + 6) / 99 ≈ 1.0707
	best := (&domain.RoundSet{Estimates: ranked}).Best()
	if best == nil || best.Venue != domain.VenueCurve {
		t.Fatalf("best = %+v, want curve", best)
	}

	vault := (&domain.RoundSet{Estimates: ranked}).Find(domain.VenueVault)
	if vault.IsBest {
		t.Error("vault should not be best")
	}
	if !vault.Diff.IsPositive() || !vault.DiffPct.IsPositive() {
		t.Errorf("vault diff = %s (%s%%), want positive", vault.Diff, vault.DiffPct)
	}
	if !best.Diff.IsZero() || !best.DiffPct.IsZero() {
		t.Errorf("best diff = %s, want zero", best.Diff)
	}

	wantGasUSD := decimal.NewFromInt(8) // 200k gas * 20 gwei * $2000
	if !vault.GasCostUSD.Equal(wantGasUSD) {
		t.Errorf("vault gas USD = %s, want %s", vault.GasCostUSD, wantGasUSD)
	}

	// Inputs are not mutated.
	if estimates[0].IsBest || !estimates[0].GasCostUSD.IsZero() {
		t.Error("Rank mutated its input")
	}
}

func TestRank_NoEligibleEstimates(t *testing.T) {
	estimates := []domain.Estimate{
		domain.Ineligible(domain.VenueVault, domain.ErrUnsupported),
		domain.Ineligible(domain.VenueCurve, domain.ErrLiquidity),
	}
	ranked := domain.Rank(estimates, ousd(1), big.NewInt(1), decimal.NewFromInt(2000))
	for _, e := range ranked {
		if e.IsBest {
			t.Errorf("%s marked best in an all-ineligible round", e.Venue)
		}
	}
}

func TestRank_EthDenominatedInput(t *testing.T) {
	// 1 WETH input valued at the ETH price, not a dollar.
	input := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	oeth := asset.NewAmount(asset.OETH, big.NewInt(1e18))
	ethUsd := decimal.NewFromInt(2000)

	ranked := domain.Rank(
		[]domain.Estimate{domain.Eligible(domain.VenueZapper, oeth, 0)},
		input, big.NewInt(0), ethUsd,
	)
	if !ranked[0].EffectivePrice.Equal(ethUsd) {
		t.Errorf("effective price = %s, want %s", ranked[0].EffectivePrice, ethUsd)
	}
}

func TestSelect(t *testing.T) {
	estimates := []domain.Estimate{
		domain.Eligible(domain.VenueVault, ousd(100), 0),
		domain.Eligible(domain.VenueCurve, ousd(99), 0),
		domain.Ineligible(domain.VenueUniswapV3, domain.ErrLiquidity),
	}

	selected := domain.Select(estimates, domain.VenueCurve)
	if !selected[1].UserSelected {
		t.Error("curve not selected")
	}
	if selected[0].UserSelected {
		t.Error("vault selection not cleared")
	}

	// Selecting an ineligible venue clears every override.
	selected = domain.Select(selected, domain.VenueUniswapV3)
	for _, e := range selected {
		if e.UserSelected {
			t.Errorf("%s still selected", e.Venue)
		}
	}
}

func TestRoundSet_SelectedPrefersOverride(t *testing.T) {
	estimates := domain.Rank(
		[]domain.Estimate{
			domain.Eligible(domain.VenueVault, ousd(100), 0),
			domain.Eligible(domain.VenueCurve, ousd(99), 0),
		},
		ousd(100).Rescale(asset.DAI), big.NewInt(0), decimal.NewFromInt(2000),
	)
	round := domain.RoundSet{Estimates: domain.Select(estimates, domain.VenueCurve)}

	sel := round.Selected()
	if sel == nil || sel.Venue != domain.VenueCurve {
		t.Fatalf("selected = %+v, want curve override", sel)
	}

	round.Estimates = domain.Select(round.Estimates, domain.VenueNone)
	sel = round.Selected()
	if sel == nil || sel.Venue != domain.VenueVault {
		t.Fatalf("selected = %+v, want best after clearing", sel)
	}
}

func TestEstimate_WithApproval(t *testing.T) {
	e := domain.Eligible(domain.VenueCurve, ousd(1), 150_000).WithApproval(52_000)
	if !e.ApproveNeeded {
		t.Error("approval flag not set")
	}
	if e.GasUsed != 202_000 {
		t.Errorf("total gas = %d, want 202000", e.GasUsed)
	}
	if e.SwapGas != 150_000 || e.ApproveGas != 52_000 {
		t.Errorf("gas split = %d/%d", e.SwapGas, e.ApproveGas)
	}
}

func TestGasCostETH(t *testing.T) {
	got := domain.GasCostETH(100_000, big.NewInt(50_000_000_000))
	if !got.Equal(decimal.RequireFromString("0.005")) {
		t.Errorf("gas cost = %s, want 0.005", got)
	}
	if !domain.GasCostETH(100_000, nil).IsZero() {
		t.Error("nil gas price should cost zero")
	}
}
