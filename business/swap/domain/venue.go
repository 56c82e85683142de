// Package domain contains the core domain types for the swap context.
package domain

// Venue identifies a liquidity venue. The set is closed: venues are
// resolved at compile time, never by runtime name lookup.
type Venue int

// VenueNone is the zero selection, used to clear a user override.
const VenueNone Venue = -1

// The supported venues.
const (
	VenueVault Venue = iota
	VenueZapper
	VenueCurve
	VenueUniswapV3
	VenueUniswapV2
	VenueSushiswap
)

// AllVenues returns every venue in ranking display order.
func AllVenues() []Venue {
	return []Venue{
		VenueVault,
		VenueZapper,
		VenueCurve,
		VenueUniswapV3,
		VenueUniswapV2,
		VenueSushiswap,
	}
}

// String returns the venue's stable identifier.
func (v Venue) String() string {
	switch v {
	case VenueVault:
		return "vault"
	case VenueZapper:
		return "zapper"
	case VenueCurve:
		return "curve"
	case VenueUniswapV3:
		return "uniswap_v3"
	case VenueUniswapV2:
		return "uniswap_v2"
	case VenueSushiswap:
		return "sushiswap"
	default:
		return "unknown"
	}
}

// DisplayName returns a human-readable venue name.
func (v Venue) DisplayName() string {
	switch v {
	case VenueVault:
		return "Origin Vault"
	case VenueZapper:
		return "Origin Zapper"
	case VenueCurve:
		return "Curve"
	case VenueUniswapV3:
		return "Uniswap V3"
	case VenueUniswapV2:
		return "Uniswap V2"
	case VenueSushiswap:
		return "SushiSwap"
	default:
		return "Unknown"
	}
}
