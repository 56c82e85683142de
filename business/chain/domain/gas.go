// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
	"time"
)

// GasPrice is a point-in-time gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: wei, Timestamp: time.Now()}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	gwei := new(big.Float).SetInt(p.Wei)
	gwei.Quo(gwei, big.NewFloat(1e9))
	f, _ := gwei.Float64()
	return f
}

// GasEstimate is a gas limit priced at an observed gas price.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total cost of a gas limit at a price.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: price,
		TotalWei: new(big.Int).Mul(price.Wei, new(big.Int).SetUint64(gasLimit)),
	}
}
