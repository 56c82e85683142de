package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/asset"
)

// AccountSnapshot is an immutable view of one account's token balances
// and spender allowances at a refresh instant. Snapshots are replaced
// whole, never mutated, so readers can hold one without locking.
type AccountSnapshot struct {
	Account    common.Address
	Balances   map[asset.AssetID]asset.Amount
	Allowances map[asset.AssetID]map[common.Address]asset.Amount
	UpdatedAt  time.Time
}

// EmptySnapshot returns a snapshot with no holdings.
func EmptySnapshot(account common.Address) *AccountSnapshot {
	return &AccountSnapshot{
		Account:    account,
		Balances:   map[asset.AssetID]asset.Amount{},
		Allowances: map[asset.AssetID]map[common.Address]asset.Amount{},
		UpdatedAt:  time.Now(),
	}
}

// Balance returns the balance for an asset.
func (s *AccountSnapshot) Balance(a *asset.Asset) (asset.Amount, bool) {
	if s == nil || a == nil {
		return asset.Amount{}, false
	}
	amt, ok := s.Balances[a.ID()]
	return amt, ok
}

// Allowance returns the allowance granted to a spender for a token.
func (s *AccountSnapshot) Allowance(token *asset.Asset, spender common.Address) (asset.Amount, bool) {
	if s == nil || token == nil {
		return asset.Amount{}, false
	}
	bySpender, ok := s.Allowances[token.ID()]
	if !ok {
		return asset.Amount{}, false
	}
	amt, ok := bySpender[spender]
	return amt, ok
}

// Age returns how long ago the snapshot was taken.
func (s *AccountSnapshot) Age() time.Duration {
	return time.Since(s.UpdatedAt)
}
