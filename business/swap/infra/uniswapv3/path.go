package uniswapv3

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Path is a V3 swap route: n tokens joined by n-1 pools, each with its
// fee tier.
type Path struct {
	Tokens []common.Address
	Fees   []uint32
}

// Single builds a one-pool path.
func Single(in, out common.Address, fee uint32) Path {
	return Path{Tokens: []common.Address{in, out}, Fees: []uint32{fee}}
}

// Through builds a two-pool path via an intermediate token.
func Through(in, mid, out common.Address, feeIn, feeOut uint32) Path {
	return Path{Tokens: []common.Address{in, mid, out}, Fees: []uint32{feeIn, feeOut}}
}

// Hops returns the number of pools crossed.
func (p Path) Hops() int {
	return len(p.Fees)
}

// Encode packs the path into the router's byte layout: 20-byte token,
// 3-byte big-endian fee, 20-byte token, and so on.
func (p Path) Encode() ([]byte, error) {
	if len(p.Tokens) < 2 || len(p.Fees) != len(p.Tokens)-1 {
		return nil, fmt.Errorf("malformed path: %d tokens, %d fees", len(p.Tokens), len(p.Fees))
	}
	out := make([]byte, 0, len(p.Tokens)*20+len(p.Fees)*3)
	for i, fee := range p.Fees {
		if fee > 0xFFFFFF {
			return nil, fmt.Errorf("fee %d does not fit in 3 bytes", fee)
		}
		out = append(out, p.Tokens[i].Bytes()...)
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
	}
	out = append(out, p.Tokens[len(p.Tokens)-1].Bytes()...)
	return out, nil
}
