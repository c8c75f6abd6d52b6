package market

import (
	"time"

	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Trade is one executed trade on the tape.
type Trade struct {
	Symbol    string      `json:"symbol,omitempty"`
	TimeStamp time.Time   `json:"ts"`
	Price     fixed.Point `json:"price"`
	Size      fixed.Point `json:"size"`
	TakerBuy  bool        `json:"taker_buy,omitempty"`
}

// Quote is one top-of-book bid/ask snapshot.
type Quote struct {
	Symbol    string      `json:"symbol,omitempty"`
	TimeStamp time.Time   `json:"ts"`
	Bid       fixed.Point `json:"bid"`
	Ask       fixed.Point `json:"ask"`
	BidSize   fixed.Point `json:"bid_size"`
	AskSize   fixed.Point `json:"ask_size"`
}

// Mid returns the quote midpoint price.
func (q Quote) Mid() fixed.Point {
	return q.Bid.Add(q.Ask).DivInt(2)
}
