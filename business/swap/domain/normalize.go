package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/asset"
)

// ErrInvalidAmount is returned for non-numeric or negative input.
var ErrInvalidAmount = errors.New("swap: invalid amount")

var hundred = decimal.NewFromInt(100)

// NormalizedAmounts holds the fixed-point amounts derived from user input.
// SwapAmount is at the input asset's precision; MinSwapAmount is the
// slippage-adjusted floor at the output asset's precision.
type NormalizedAmounts struct {
	SwapAmount    asset.Amount
	MinSwapAmount asset.Amount
}

// Normalize converts a user-entered decimal string into fixed-point
// amounts. When tolerance is non-nil the minimum acceptable output is
// the input rescaled to the output precision, reduced by the tolerance
// percentage and floored; otherwise the minimum defaults to zero.
// Pure and deterministic: identical inputs always produce identical
// results.
func Normalize(input string, in, out *asset.Asset, tolerance *decimal.Decimal) (NormalizedAmounts, error) {
	if in == nil || out == nil {
		return NormalizedAmounts{}, fmt.Errorf("%w: nil asset", ErrInvalidAmount)
	}

	swapAmount, err := asset.ParseString(in, input)
	if err != nil {
		return NormalizedAmounts{}, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}

	min := asset.Zero(out)
	if tolerance != nil {
		if tolerance.IsNegative() || tolerance.GreaterThanOrEqual(hundred) {
			return NormalizedAmounts{}, fmt.Errorf("%w: tolerance %s%%", ErrInvalidAmount, tolerance)
		}
		factor := decimal.NewFromInt(1).Sub(tolerance.Div(hundred))
		min = swapAmount.Rescale(out).MulDecimalFloor(factor)
	}

	return NormalizedAmounts{
		SwapAmount:    swapAmount,
		MinSwapAmount: min,
	}, nil
}

// MinimumReceived applies the tolerance percentage to a quoted output,
// flooring to an integer. The dispatcher uses this against the latest
// quote rather than reusing a stale minimum.
func MinimumReceived(quoted asset.Amount, tolerance decimal.Decimal) asset.Amount {
	if tolerance.IsNegative() {
		return quoted
	}
	factor := decimal.NewFromInt(1).Sub(tolerance.Div(hundred))
	return quoted.MulDecimalFloor(factor)
}
