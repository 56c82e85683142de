package domain_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

func tol(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		in, out   *asset.Asset
		tolerance *decimal.Decimal
		wantSwap  string
		wantMin   string
		wantErr   bool
	}{
		{
			name:     "dai_to_ousd_quarter_pct",
			input:    "100", in: asset.DAI, out: asset.OUSD,
			tolerance: tol("0.25"),
			wantSwap:  "100000000000000000000",
			wantMin:   "99750000000000000000",
		},
		{
			name:     "usdc_upscales_to_ousd",
			input:    "1.5", in: asset.USDC, out: asset.OUSD,
			tolerance: tol("1"),
			wantSwap:  "1500000",
			wantMin:   "1485000000000000000",
		},
		{
			name:     "ousd_downscales_to_usdt",
			input:    "10", in: asset.OUSD, out: asset.USDT,
			tolerance: tol("0.5"),
			wantSwap:  "10000000000000000000",
			wantMin:   "9950000",
		},
		{
			name:     "nil_tolerance_means_zero_min",
			input:    "5", in: asset.DAI, out: asset.OUSD,
			wantSwap: "5000000000000000000",
			wantMin:  "0",
		},
		{
			name:     "zero_tolerance_keeps_full_amount",
			input:    "3", in: asset.DAI, out: asset.OUSD,
			tolerance: tol("0"),
			wantSwap:  "3000000000000000000",
			wantMin:   "3000000000000000000",
		},
		{
			name:  "fractional_floor",
			input: "0.000001", in: asset.USDC, out: asset.USDT,
			tolerance: tol("0.25"),
			wantSwap:  "1",
			wantMin:   "0",
		},
		{name: "negative_amount", input: "-1", in: asset.DAI, out: asset.OUSD, wantErr: true},
		{name: "not_a_number", input: "abc", in: asset.DAI, out: asset.OUSD, wantErr: true},
		{name: "empty", input: "", in: asset.DAI, out: asset.OUSD, wantErr: true},
		{name: "negative_tolerance", input: "1", in: asset.DAI, out: asset.OUSD, tolerance: tol("-1"), wantErr: true},
		{name: "tolerance_at_hundred", input: "1", in: asset.DAI, out: asset.OUSD, tolerance: tol("100"), wantErr: true},
		{name: "nil_input_asset", input: "1", out: asset.OUSD, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.Normalize(tt.input, tt.in, tt.out, tt.tolerance)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, domain.ErrInvalidAmount) {
					t.Errorf("error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.SwapAmount.Raw().String() != tt.wantSwap {
				t.Errorf("swap = %s, want %s", got.SwapAmount.Raw(), tt.wantSwap)
			}
			if got.MinSwapAmount.Raw().String() != tt.wantMin {
				t.Errorf("min = %s, want %s", got.MinSwapAmount.Raw(), tt.wantMin)
			}
			if got.MinSwapAmount.Asset() != tt.out {
				t.Errorf("min asset = %s, want %s", got.MinSwapAmount.Asset().Symbol(), tt.out.Symbol())
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	a, err := domain.Normalize("123.456789", asset.DAI, asset.USDC, tol("0.25"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := domain.Normalize("123.456789", asset.DAI, asset.USDC, tol("0.25"))
	if err != nil {
		t.Fatal(err)
	}
	if !a.SwapAmount.Equals(b.SwapAmount) || !a.MinSwapAmount.Equals(b.MinSwapAmount) {
		t.Error("identical inputs produced different amounts")
	}
}

func TestMinimumReceived(t *testing.T) {
	quoted := asset.NewAmount(asset.OUSD, big.NewInt(1e18))

	got := domain.MinimumReceived(quoted, decimal.RequireFromString("0.25"))
	if got.Raw().String() != "997500000000000000" {
		t.Errorf("min = %s, want 997500000000000000", got.Raw())
	}

	// A negative tolerance is ignored rather than inflating the floor.
	got = domain.MinimumReceived(quoted, decimal.RequireFromString("-5"))
	if !got.Equals(quoted) {
		t.Errorf("min = %s, want full amount", got.Raw())
	}
}
