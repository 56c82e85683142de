package domain_test

import (
	"errors"
	"testing"

	"github.com/fd1az/swap-router/business/swap/domain"
)

func TestClassifyRevert(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, domain.ErrNone},
		{"erc20_balance", errors.New("execution reverted: ERC20: transfer amount exceeds balance"), domain.ErrNotEnoughFundsUser},
		{"burn_balance", errors.New("Burn amount exceeds balance"), domain.ErrNotEnoughFundsUser},
		{"univ3_stf", errors.New("execution reverted: STF"), domain.ErrNotEnoughFundsUser},
		{"univ2_output", errors.New("UniswapV2Router: INSUFFICIENT OUTPUT AMOUNT"), domain.ErrNotEnoughFundsContract},
		{"curve_fewer_coins", errors.New("Exchange resulted in fewer coins than expected"), domain.ErrNotEnoughFundsContract},
		{"mint_cap", errors.New("Mint amount greater than max"), domain.ErrAmountTooHigh},
		{"redeem_liquidity", errors.New("Redeem amount lower than minimum"), domain.ErrLiquidity},
		{"unknown", errors.New("out of gas"), domain.ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.ClassifyRevert(tt.err); got != tt.want {
				t.Errorf("ClassifyRevert(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
