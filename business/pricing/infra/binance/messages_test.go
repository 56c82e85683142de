package binance

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStreamEvent_Unwrap(t *testing.T) {
	raw := `{"stream":"ethusdt@bookTicker","data":{"u":400900217,"s":"ETHUSDT","b":"1999.50","B":"31.21","a":"2000.50","A":"40.66"}}`

	var event streamEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal wrapper: %v", err)
	}
	if event.Stream != "ethusdt@bookTicker" {
		t.Errorf("stream = %s", event.Stream)
	}

	var ticker bookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		t.Fatalf("unmarshal ticker: %v", err)
	}
	if ticker.Symbol != "ETHUSDT" || ticker.BidPrice != "1999.50" || ticker.AskPrice != "2000.50" {
		t.Errorf("ticker = %+v", ticker)
	}
}

func TestBookTicker_MidPrice(t *testing.T) {
	tests := []struct {
		name     string
		bid, ask string
		want     string
	}{
		{"midpoint", "1999.50", "2000.50", "2000"},
		{"equal_sides", "2000", "2000", "2000"},
		{"missing_bid", "", "2000", "0"},
		{"missing_ask", "2000", "", "0"},
		{"zero_bid", "0", "2000", "0"},
		{"garbage", "abc", "2000", "0"},
		{"negative", "-1", "2000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := bookTickerEvent{BidPrice: tt.bid, AskPrice: tt.ask}
			if got := e.midPrice(); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("mid = %s, want %s", got, tt.want)
			}
		})
	}
}
