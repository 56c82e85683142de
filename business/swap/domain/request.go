package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/asset"
)

// Mode is the swap direction relative to the protocol token.
type Mode string

const (
	// ModeMint deposits a base asset to receive the protocol token.
	ModeMint Mode = "mint"

	// ModeRedeem burns the protocol token to withdraw a base asset.
	ModeRedeem Mode = "redeem"
)

// Coin is the counter-asset side of a swap: either a concrete asset or
// the redeem-only "mix" basket of all reserve assets.
type Coin struct {
	Asset *asset.Asset // nil when Mix
	Mix   bool
}

// CoinFor wraps a concrete asset.
func CoinFor(a *asset.Asset) Coin {
	if a == nil {
		panic("swap: nil coin asset")
	}
	return Coin{Asset: a}
}

// MixCoin returns the basket meta-coin.
func MixCoin() Coin {
	return Coin{Mix: true}
}

// String returns the coin's symbol, or "mix".
func (c Coin) String() string {
	if c.Mix {
		return "mix"
	}
	if c.Asset == nil {
		return ""
	}
	return c.Asset.Symbol()
}

// Equals compares two coins.
func (c Coin) Equals(other Coin) bool {
	if c.Mix || other.Mix {
		return c.Mix == other.Mix
	}
	if c.Asset == nil || other.Asset == nil {
		return c.Asset == other.Asset
	}
	return c.Asset.Equals(other.Asset)
}

// SwapRequest is the user's desired trade. It is ephemeral: rebuilt on
// every input change and passed by value into the orchestrator.
type SwapRequest struct {
	Mode      Mode
	Amount    string // decimal string from the input field
	Protocol  *asset.Asset // the protocol token (OUSD or OETH)
	Coin      Coin         // counter-asset, or mix on redeem
	Slippage  decimal.Decimal // tolerance percentage, e.g. 0.25
	Account   string          // wallet address, empty when disconnected
}

// InputAsset returns the asset the user spends.
func (r SwapRequest) InputAsset() *asset.Asset {
	if r.Mode == ModeRedeem {
		return r.Protocol
	}
	return r.Coin.Asset
}

// OutputAsset returns the asset the user receives. For a mix redeem the
// basket is valued in protocol-token units.
func (r SwapRequest) OutputAsset() *asset.Asset {
	if r.Mode == ModeRedeem {
		if r.Coin.Mix {
			return r.Protocol
		}
		return r.Coin.Asset
	}
	return r.Protocol
}

// SameShape reports whether two requests target the same mode and coin,
// meaning a user route override remains meaningful across them.
func (r SwapRequest) SameShape(other SwapRequest) bool {
	return r.Mode == other.Mode && r.Coin.Equals(other.Coin)
}
