package reporter

import (
	"context"
	"math/big"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/pkg/ui"
)

var gweiDivisor = big.NewFloat(1e9)

// TUIReporter forwards estimation rounds to the Bubble Tea program.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter. The Bubble Tea program
// itself is run by main; this adapter only sends messages to it.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportRound pushes the round into the UI event loop.
func (r *TUIReporter) ReportRound(snap app.Snapshot) {
	ui.Send(ui.RoundMsg{Round: snap.Round, Loading: snap.Loading})

	if snap.Round.GasPriceWei != nil {
		gwei, _ := new(big.Float).Quo(
			new(big.Float).SetInt(snap.Round.GasPriceWei), gweiDivisor).Float64()
		ui.Send(ui.GasPriceMsg{GweiPrice: gwei})
	}
	if !snap.Round.EthUsd.IsZero() {
		usd, _ := snap.Round.EthUsd.Float64()
		ui.Send(ui.EthPriceMsg{PriceUSD: usd})
	}
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
