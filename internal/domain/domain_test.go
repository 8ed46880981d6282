package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		buyPos  Position
		sellPos Position
		want    Direction
	}{
		{"flat both sides opens", Position{}, Position{}, DirectionOpen},
		{"short buy leg and long sell leg closes", Position{AmountUSD: -100}, Position{AmountUSD: 100}, DirectionClose},
		{"only buy leg closing is half_close", Position{AmountUSD: -100}, Position{}, DirectionHalfClose},
		{"only sell leg closing is half_close", Position{}, Position{AmountUSD: 100}, DirectionHalfClose},
		{"long buy leg and short sell leg opens", Position{AmountUSD: 100}, Position{AmountUSD: -100}, DirectionOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.buyPos, tt.sellPos))
		})
	}
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestBalanceAvailable(t *testing.T) {
	b := Balance{Buy: 100, Sell: 50}
	assert.Equal(t, 100.0, b.Available(SideBuy))
	assert.Equal(t, 50.0, b.Available(SideSell))
}

func TestOrderBookLevelSynthesis(t *testing.T) {
	book := OrderBook{
		Bids: []PriceLevel{{Price: 100.0, Size: 5}},
		Asks: []PriceLevel{{Price: 101.0, Size: 7}},
	}

	// Present levels are returned as-is.
	assert.Equal(t, PriceLevel{Price: 100.0, Size: 5}, book.BidLevel(0, 0.1))

	// Missing depth steps one tick per level past the deepest known one.
	assert.InDelta(t, 99.8, book.BidLevel(2, 0.1).Price, 1e-9)
	assert.InDelta(t, 5.0, book.BidLevel(2, 0.1).Size, 1e-9)
	assert.InDelta(t, 101.2, book.AskLevel(2, 0.1).Price, 1e-9)
	assert.InDelta(t, 7.0, book.AskLevel(2, 0.1).Size, 1e-9)
}

func TestOrderBookFreshness(t *testing.T) {
	exch := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	recv := exch.Add(150 * time.Millisecond)
	book := OrderBook{
		Bids:       []PriceLevel{{Price: 1, Size: 1}},
		Asks:       []PriceLevel{{Price: 2, Size: 1}},
		ExchangeTS: exch,
		ReceivedTS: recv,
	}

	assert.True(t, book.Valid())
	assert.Equal(t, 150*time.Millisecond, book.Lag())
	assert.Equal(t, time.Second, book.Age(recv.Add(time.Second)))

	assert.False(t, OrderBook{Asks: book.Asks}.Valid())
}
