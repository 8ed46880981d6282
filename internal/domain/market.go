package domain

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Direction classifies whether a candidate trade increases, reduces, or
// partially reduces existing net exposure.
type Direction string

const (
	DirectionOpen      Direction = "open"
	DirectionClose     Direction = "close"
	DirectionHalfClose Direction = "half_close"
)

// MarketInfo is the immutable per-venue instrument metadata: minimum price
// increment, minimum size increment, minimum order size, and fee schedule.
type MarketInfo struct {
	TickSize float64
	StepSize float64
	MinSize  float64
	MakerFee float64
	TakerFee float64
}

// Position is one venue's signed exposure in a market.
type Position struct {
	AmountCoin float64
	AmountUSD  float64
}

// Balance is the tradable USD per side for one venue (optionally one market).
// Updating marks the balance as unknown while a refresh is in flight;
// admission control fails closed on it.
type Balance struct {
	Buy      float64
	Sell     float64
	Updating bool
}

// Available returns the tradable USD for the given side.
func (b Balance) Available(side Side) float64 {
	if side == SideBuy {
		return b.Buy
	}
	return b.Sell
}
