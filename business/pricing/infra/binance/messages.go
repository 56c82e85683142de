package binance

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// streamEvent is the combined-stream wrapper.
type streamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// bookTickerEvent is a best bid/ask update from <symbol>@bookTicker.
type bookTickerEvent struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// midPrice returns the bid/ask midpoint, or zero when either side is
// missing or unparseable.
func (e *bookTickerEvent) midPrice() decimal.Decimal {
	bid, err := decimal.NewFromString(e.BidPrice)
	if err != nil || !bid.IsPositive() {
		return decimal.Zero
	}
	ask, err := decimal.NewFromString(e.AskPrice)
	if err != nil || !ask.IsPositive() {
		return decimal.Zero
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2))
}
