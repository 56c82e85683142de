package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/asset"
)

var weiPerETH = decimal.New(1, 18)

// CoinSplit is one leg of a basket redeem: a reserve asset and the
// amount of it returned.
type CoinSplit struct {
	Coin   *asset.Asset
	Amount asset.Amount
}

// Estimate is the per-venue estimation result: either ineligible with a
// typed reason, or eligible with an expected output and gas figures.
// The orchestrator enriches eligible estimates with economic metrics.
type Estimate struct {
	Venue   Venue
	CanSwap bool
	Err     ErrorKind

	// Eligible fields
	AmountReceived asset.Amount
	GasUsed        uint64 // swap gas, plus approve gas when approval is needed
	SwapGas        uint64
	ApproveGas     uint64
	ApproveNeeded  bool
	CoinSplits     []CoinSplit // populated only for basket redeem

	// Enrichment (set during ranking)
	IsBest         bool
	UserSelected   bool
	GasCostETH     decimal.Decimal
	GasCostUSD     decimal.Decimal
	EffectivePrice decimal.Decimal // USD cost per unit received, gas-inclusive
	Diff           decimal.Decimal // vs. best effective price
	DiffPct        decimal.Decimal
}

// Ineligible creates an estimate for a venue that cannot serve the swap.
func Ineligible(v Venue, kind ErrorKind) Estimate {
	return Estimate{Venue: v, CanSwap: false, Err: kind}
}

// Eligible creates a successful estimate.
func Eligible(v Venue, received asset.Amount, swapGas uint64) Estimate {
	return Estimate{
		Venue:          v,
		CanSwap:        true,
		AmountReceived: received,
		GasUsed:        swapGas,
		SwapGas:        swapGas,
	}
}

// WithApproval marks the estimate as requiring an ERC20 approval and
// folds the approval gas into the total.
func (e Estimate) WithApproval(approveGas uint64) Estimate {
	e.ApproveNeeded = true
	e.ApproveGas = approveGas
	e.GasUsed = e.SwapGas + approveGas
	return e
}

// RoundSet is one complete, enriched estimation round. It is published
// atomically: observers never see a partially-settled set.
type RoundSet struct {
	Generation  uint64
	Request     SwapRequest
	Estimates   []Estimate
	EthUsd      decimal.Decimal
	GasPriceWei *big.Int
	Timestamp   time.Time
}

// Empty reports whether the round carries no estimates.
func (s RoundSet) Empty() bool {
	return len(s.Estimates) == 0
}

// Best returns the eligible estimate marked best, or nil.
func (s RoundSet) Best() *Estimate {
	for i := range s.Estimates {
		if s.Estimates[i].CanSwap && s.Estimates[i].IsBest {
			return &s.Estimates[i]
		}
	}
	return nil
}

// Selected returns the user-selected estimate if one exists, else the
// best one.
func (s RoundSet) Selected() *Estimate {
	for i := range s.Estimates {
		if s.Estimates[i].CanSwap && s.Estimates[i].UserSelected {
			return &s.Estimates[i]
		}
	}
	return s.Best()
}

// Find returns the estimate for a venue, or nil.
func (s RoundSet) Find(v Venue) *Estimate {
	for i := range s.Estimates {
		if s.Estimates[i].Venue == v {
			return &s.Estimates[i]
		}
	}
	return nil
}

// ethDenominated reports whether a coin's unit value tracks ETH rather
// than the dollar. LSD pegs are treated as 1 ETH for costing purposes.
func ethDenominated(a *asset.Asset) bool {
	if a == nil {
		return false
	}
	switch a.ID() {
	case asset.IDETH, asset.IDWETH, asset.IDOETH, asset.IDStETH,
		asset.IDRETH, asset.IDFrxETH, asset.IDSfrxETH:
		return true
	}
	return false
}

// unitPriceUSD returns the approximate USD value of one unit of a coin,
// used only for cost ranking, never for settlement amounts.
func unitPriceUSD(a *asset.Asset, ethUsd decimal.Decimal) decimal.Decimal {
	if ethDenominated(a) {
		return ethUsd
	}
	return decimal.NewFromInt(1)
}

// GasCostETH converts a gas quantity at a wei price into ETH.
func GasCostETH(gasUsed uint64, gasPriceWei *big.Int) decimal.Decimal {
	if gasPriceWei == nil {
		return decimal.Zero
	}
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasUsed))
	return decimal.NewFromBigInt(totalWei, 0).Div(weiPerETH)
}

// Rank enriches a slice of estimates with gas costs, effective prices,
// the best marker and deltas versus best. Pure function: the inputs are
// not mutated, a new slice is returned.
//
// Effective price is the gas-inclusive USD cost per unit received:
//
//	(inputValueUSD + gasUSD) / amountReceived
//
// The eligible estimate with the minimum effective price is best;
// exactly one is marked whenever any eligible estimate exists.
func Rank(
	estimates []Estimate,
	input asset.Amount,
	gasPriceWei *big.Int,
	ethUsd decimal.Decimal,
) []Estimate {
	out := make([]Estimate, len(estimates))
	copy(out, estimates)

	inputUSD := input.ToDecimal().Mul(unitPriceUSD(input.Asset(), ethUsd))

	bestIdx := -1
	for i := range out {
		e := &out[i]
		e.IsBest = false
		if !e.CanSwap {
			continue
		}

		e.GasCostETH = GasCostETH(e.GasUsed, gasPriceWei)
		e.GasCostUSD = e.GasCostETH.Mul(ethUsd)

		received := e.AmountReceived.ToDecimal()
		if received.IsZero() {
			e.EffectivePrice = decimal.Zero
			continue
		}
		e.EffectivePrice = inputUSD.Add(e.GasCostUSD).Div(received)

		if bestIdx < 0 || e.EffectivePrice.LessThan(out[bestIdx].EffectivePrice) {
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return out
	}

	best := &out[bestIdx]
	best.IsBest = true
	best.Diff = decimal.Zero
	best.DiffPct = decimal.Zero

	for i := range out {
		e := &out[i]
		if !e.CanSwap || i == bestIdx || e.EffectivePrice.IsZero() {
			continue
		}
		e.Diff = e.EffectivePrice.Sub(best.EffectivePrice)
		if !best.EffectivePrice.IsZero() {
			e.DiffPct = e.Diff.Div(best.EffectivePrice).Mul(hundred)
		}
	}

	return out
}

// Select returns a copy of the estimates with UserSelected set on the
// given venue and cleared everywhere else. Selecting an ineligible or
// unknown venue clears every override.
func Select(estimates []Estimate, v Venue) []Estimate {
	out := make([]Estimate, len(estimates))
	copy(out, estimates)
	for i := range out {
		out[i].UserSelected = out[i].CanSwap && out[i].Venue == v
	}
	return out
}
