package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/business/chain/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

// ChainService is the chain context facade consumed by other contexts.
type ChainService struct {
	gas       GasOracle
	snapshots SnapshotSource
	tokens    TokenService
	waiter    TxWaiter
}

func NewChainService(gas GasOracle, snapshots SnapshotSource, tokens TokenService, waiter TxWaiter) *ChainService {
	return &ChainService{gas: gas, snapshots: snapshots, tokens: tokens, waiter: waiter}
}

// GasPriceWei returns the current gas price in wei.
func (s *ChainService) GasPriceWei(ctx context.Context) (*big.Int, error) {
	price, err := s.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return price.Wei, nil
}

// Balance reads the tracked balance of an asset from the snapshot.
func (s *ChainService) Balance(a *asset.Asset) (asset.Amount, bool) {
	return s.snapshots.Current().Balance(a)
}

// Allowance reads the tracked allowance from the snapshot.
func (s *ChainService) Allowance(token *asset.Asset, spender common.Address) (asset.Amount, bool) {
	return s.snapshots.Current().Allowance(token, spender)
}

// Approve submits an ERC20 approval and returns its hash and gas limit.
func (s *ChainService) Approve(ctx context.Context, token *asset.Asset, spender common.Address, amount *big.Int) (common.Hash, uint64, error) {
	return s.tokens.Approve(ctx, token, spender, amount)
}

// WaitMined blocks until the transaction is mined.
func (s *ChainService) WaitMined(ctx context.Context, hash common.Hash) error {
	return s.waiter.WaitMined(ctx, hash)
}

// RefreshSnapshot forces an immediate holdings re-read, used after a
// swap settles.
func (s *ChainService) RefreshSnapshot(ctx context.Context) error {
	return s.snapshots.Refresh(ctx)
}

// Snapshot exposes the current account snapshot.
func (s *ChainService) Snapshot() *domain.AccountSnapshot {
	return s.snapshots.Current()
}
