package domain

// Classify derives the deal direction from the two legs' current positions.
// A buy leg closes exposure when the buy-market position is net short; a sell
// leg closes when the sell-market position is net long. Both closing makes
// the deal a close, neither makes it an open, one of the two a half_close.
func Classify(buyPos, sellPos Position) Direction {
	buyClose := buyPos.AmountUSD < 0
	sellClose := sellPos.AmountUSD > 0
	switch {
	case buyClose && sellClose:
		return DirectionClose
	case !buyClose && !sellClose:
		return DirectionOpen
	default:
		return DirectionHalfClose
	}
}
