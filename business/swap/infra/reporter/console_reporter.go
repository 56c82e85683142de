// Package reporter contains presentation adapters for estimation rounds.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fd1az/swap-router/business/swap/app"
)

// ConsoleReporter implements app.Reporter for plain CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Swap Router Started")
	fmt.Fprintln(r.out, "===================")
	return nil
}

// ReportRound prints one estimation round as a table.
func (r *ConsoleReporter) ReportRound(snap app.Snapshot) {
	if snap.Loading || snap.Round.Empty() {
		return
	}

	round := snap.Round
	req := round.Request

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ROUND #%d  %s %s %s -> %s\n",
		round.Generation,
		req.Mode,
		req.Amount,
		req.InputAsset().Symbol(),
		req.Coin,
	)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", round.Timestamp.Format(time.RFC3339))
	if round.GasPriceWei != nil {
		fmt.Fprintf(r.out, "Gas price:      %s wei\n", round.GasPriceWei)
	}
	if !round.EthUsd.IsZero() {
		fmt.Fprintf(r.out, "ETH/USD:        $%s\n", round.EthUsd.StringFixed(2))
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "%-14s %16s %10s %12s %8s\n", "VENUE", "RECEIVE", "GAS USD", "EFF PRICE", "DIFF")

	for _, e := range round.Estimates {
		if !e.CanSwap {
			fmt.Fprintf(r.out, "%-14s %s\n", e.Venue.DisplayName(), e.Err)
			continue
		}

		marker := ""
		if e.IsBest {
			marker = "  <- best"
		}
		if e.UserSelected {
			marker = "  <- selected"
		}

		diff := "-"
		if !e.IsBest {
			diff = e.DiffPct.StringFixed(2) + "%"
		}

		fmt.Fprintf(r.out, "%-14s %16s %10s %12s %8s%s\n",
			e.Venue.DisplayName(),
			e.AmountReceived.StringFixed(6),
			"$"+e.GasCostUSD.StringFixed(2),
			e.EffectivePrice.StringFixed(4),
			diff,
			marker,
		)
	}

	if sel := snap.Selected(); sel != nil && len(sel.CoinSplits) > 0 {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintln(r.out, "BASKET")
		for _, split := range sel.CoinSplits {
			fmt.Fprintf(r.out, "  %-8s %s\n", split.Coin.Symbol(), split.Amount.StringFixed(4))
		}
	}

	fmt.Fprintln(r.out, "================================================================================")
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Swap Router Stopped")
	return nil
}
