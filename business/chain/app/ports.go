// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

// GasOracle provides current gas prices.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price, cached per block.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)
}

// SnapshotSource maintains the account's balance/allowance view.
type SnapshotSource interface {
	// Current returns the latest snapshot; never nil once Start ran.
	Current() *domain.AccountSnapshot

	// Refresh forces an immediate re-read of all tracked holdings.
	Refresh(ctx context.Context) error

	// Start launches background refresh and returns when stopped.
	Start(ctx context.Context) error
}

// TokenService performs ERC20 reads and approvals.
type TokenService interface {
	BalanceOf(ctx context.Context, token *asset.Asset, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token *asset.Asset, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token *asset.Asset, spender common.Address, amount *big.Int) (common.Hash, uint64, error)
}

// TxWaiter blocks until a transaction is mined.
type TxWaiter interface {
	WaitMined(ctx context.Context, hash common.Hash) error
}
