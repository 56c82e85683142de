// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a single ETH/USD observation from a named source.
type PriceQuote struct {
	Source    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// NewPriceQuote creates a quote stamped with the current time.
func NewPriceQuote(source string, price decimal.Decimal) PriceQuote {
	return PriceQuote{
		Source:    source,
		Price:     price,
		Timestamp: time.Now(),
	}
}

// Age returns how long ago the quote was taken.
func (q PriceQuote) Age() time.Duration {
	return time.Since(q.Timestamp)
}

// Stale reports whether the quote is older than maxAge.
func (q PriceQuote) Stale(maxAge time.Duration) bool {
	return q.Age() > maxAge
}

// Valid reports whether the quote carries a usable positive price.
func (q PriceQuote) Valid() bool {
	return q.Price.IsPositive()
}
