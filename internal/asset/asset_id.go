// Package asset provides a type-safe model for on-chain and fiat assets.
// The core uses big.Int for exact fixed-point representation.
// decimal.Decimal is only used at boundaries (parsing, display, pricing).
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID uniquely identifies an asset by chain and contract address.
// For the native coin the address is zero. This is the TRUE identity,
// not the symbol.
type AssetID struct {
	chainID uint64
	address common.Address // zero = native coin
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for an ERC20 token.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("token address cannot be zero - use NewNativeAssetID for native coins")
	}
	return AssetID{chainID: chainID, address: addr}
}

// NewFiatAssetID creates an AssetID for fiat currencies (chainID 0).
func NewFiatAssetID(symbol string) AssetID {
	return AssetID{
		chainID: 0,
		address: common.BytesToAddress(common.RightPadBytes([]byte(symbol), 20)),
	}
}

// ChainID returns the chain ID (0 for fiat).
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the token contract address (zero for native coins).
func (id AssetID) Address() common.Address {
	return id.address
}

// IsNative returns true if this is a native coin.
func (id AssetID) IsNative() bool {
	return id.chainID != 0 && id.address == (common.Address{})
}

// IsToken returns true if this is an ERC20 token.
func (id AssetID) IsToken() bool {
	return id.chainID != 0 && id.address != (common.Address{})
}

// IsFiat returns true if this is a fiat currency.
func (id AssetID) IsFiat() bool {
	return id.chainID == 0
}

// String returns a human-readable representation.
func (id AssetID) String() string {
	if id.IsFiat() {
		return fmt.Sprintf("fiat:%s", id.address.Hex()[:10])
	}
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}
