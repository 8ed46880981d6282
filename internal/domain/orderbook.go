package domain

import "time"

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is one venue's view of a market: bids descending, asks ascending,
// the exchange-reported timestamp and the local receipt timestamp. The core
// takes one OrderBook value per decision cycle and derives every comparison
// from it, so a provider that mutates its own copy in place cannot race a
// decision.
type OrderBook struct {
	Bids       []PriceLevel
	Asks       []PriceLevel
	ExchangeTS time.Time
	ReceivedTS time.Time
}

// Valid reports whether both sides of the book are populated.
func (b OrderBook) Valid() bool {
	return len(b.Bids) > 0 && len(b.Asks) > 0
}

// BestBid returns the highest bid level.
func (b OrderBook) BestBid() PriceLevel {
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the lowest ask level.
func (b OrderBook) BestAsk() PriceLevel {
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	return b.Asks[0]
}

// Age is how long ago the book was received locally.
func (b OrderBook) Age(now time.Time) time.Duration {
	return now.Sub(b.ReceivedTS)
}

// Lag is the transport delay between the exchange stamping the book and the
// local receipt.
func (b OrderBook) Lag() time.Duration {
	return b.ReceivedTS.Sub(b.ExchangeTS)
}

// BidLevel returns the i-th bid. Books that only carry top-of-book must not
// break range logic, so missing depth is synthesized by stepping the deepest
// known bid down one tick per missing level.
func (b OrderBook) BidLevel(i int, tick float64) PriceLevel {
	if i < len(b.Bids) {
		return b.Bids[i]
	}
	if len(b.Bids) == 0 {
		return PriceLevel{}
	}
	last := b.Bids[len(b.Bids)-1]
	return PriceLevel{Price: last.Price - float64(i-len(b.Bids)+1)*tick, Size: last.Size}
}

// AskLevel returns the i-th ask, synthesizing missing depth by stepping the
// deepest known ask up one tick per missing level.
func (b OrderBook) AskLevel(i int, tick float64) PriceLevel {
	if i < len(b.Asks) {
		return b.Asks[i]
	}
	if len(b.Asks) == 0 {
		return PriceLevel{}
	}
	last := b.Asks[len(b.Asks)-1]
	return PriceLevel{Price: last.Price + float64(i-len(b.Asks)+1)*tick, Size: last.Size}
}
