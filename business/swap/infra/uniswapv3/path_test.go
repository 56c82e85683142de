package uniswapv3

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/swap-router/internal/asset"
)

func TestPath_EncodeSingle(t *testing.T) {
	in := common.HexToAddress("0x2A8e1E676Ec238d8A992307B495b45B3fEAa5e86")
	out := common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

	encoded, err := Single(in, out, 500).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 43 {
		t.Fatalf("length = %d, want 43", len(encoded))
	}
	if !bytes.Equal(encoded[:20], in.Bytes()) {
		t.Error("input token not first")
	}
	// 500 big-endian in 3 bytes
	if fee := encoded[20:23]; fee[0] != 0x00 || fee[1] != 0x01 || fee[2] != 0xF4 {
		t.Errorf("fee bytes = %s", hex.EncodeToString(fee))
	}
	if !bytes.Equal(encoded[23:], out.Bytes()) {
		t.Error("output token not last")
	}
}

func TestPath_EncodeThrough(t *testing.T) {
	p := Through(
		common.HexToAddress("0x01"),
		common.HexToAddress("0x02"),
		common.HexToAddress("0x03"),
		500, 100,
	)
	if p.Hops() != 2 {
		t.Errorf("hops = %d, want 2", p.Hops())
	}
	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// 3 tokens * 20 bytes + 2 fees * 3 bytes
	if len(encoded) != 66 {
		t.Errorf("length = %d, want 66", len(encoded))
	}
}

func TestPath_EncodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		path Path
	}{
		{"no_tokens", Path{}},
		{"one_token", Path{Tokens: []common.Address{{}}}},
		{"fee_count_mismatch", Path{Tokens: []common.Address{{}, {}}, Fees: []uint32{1, 2}}},
		{"fee_overflow", Path{Tokens: []common.Address{{}, {}}, Fees: []uint32{0x1000000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.path.Encode(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultPaths(t *testing.T) {
	paths, err := defaultPaths(asset.DefaultRegistry(), 500)
	if err != nil {
		t.Fatalf("building paths: %v", err)
	}

	tests := []struct {
		name     string
		in, out  *asset.Asset
		wantHops int
	}{
		{"ousd_usdt_direct", asset.OUSD, asset.USDT, 1},
		{"usdt_ousd_direct", asset.USDT, asset.OUSD, 1},
		{"dai_routes_through_usdt", asset.DAI, asset.OUSD, 2},
		{"ousd_to_usdc_through_usdt", asset.OUSD, asset.USDC, 2},
		{"oeth_weth_direct", asset.OETH, asset.WETH, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := paths[pairKey(tt.in, tt.out)]
			if !ok {
				t.Fatalf("no path for %s -> %s", tt.in.Symbol(), tt.out.Symbol())
			}
			if p.Hops() != tt.wantHops {
				t.Errorf("hops = %d, want %d", p.Hops(), tt.wantHops)
			}
			if p.Tokens[0] != tt.in.Address() || p.Tokens[len(p.Tokens)-1] != tt.out.Address() {
				t.Error("path endpoints do not match the pair")
			}
		})
	}

	// Two-hop stable routes pivot on USDT.
	p := paths[pairKey(asset.DAI, asset.OUSD)]
	if p.Tokens[1] != asset.USDT.Address() {
		t.Errorf("intermediate = %s, want USDT", p.Tokens[1].Hex())
	}

	if _, ok := paths[pairKey(asset.DAI, asset.USDC)]; ok {
		t.Error("unexpected stable-to-stable path")
	}
}
