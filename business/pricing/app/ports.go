// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/swap-router/business/pricing/domain"
)

// PriceSource fetches the current ETH/USD price from one backend.
type PriceSource interface {
	// Name identifies the source in logs and quote metadata.
	Name() string

	// FetchEthUsd retrieves a fresh quote. Implementations return an
	// error rather than a zero or stale price.
	FetchEthUsd(ctx context.Context) (domain.PriceQuote, error)
}

// StreamingSource is a PriceSource that can push quotes continuously.
type StreamingSource interface {
	PriceSource

	// Stream delivers quotes on the returned channel until ctx ends.
	Stream(ctx context.Context) (<-chan domain.PriceQuote, error)
}
