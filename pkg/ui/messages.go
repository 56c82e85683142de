// Package ui provides the Bubble Tea TUI for the swap router.
package ui

import (
	"time"

	"github.com/fd1az/swap-router/business/swap/domain"
)

// Message types for TUI updates

// RoundMsg is sent when a new estimation round is published.
type RoundMsg struct {
	Round   domain.RoundSet
	Loading bool
}

// GasPriceMsg is sent when the gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// EthPriceMsg is sent when the ETH/USD reference price is updated.
type EthPriceMsg struct {
	PriceUSD float64
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// ConfirmRouteMsg asks the user to confirm a materially worse route.
type ConfirmRouteMsg struct {
	Venue   domain.Venue
	DiffPct string
}

// ExecutionMsg reports the outcome of a dispatched swap.
type ExecutionMsg struct {
	Venue   domain.Venue
	TxHash  string
	Err     error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
