package domain

import "time"

// CandidateDeal is the ephemeral outcome of one scan cycle: a cross-venue
// taker opportunity. It lives for a single decision-execution cycle and is
// never stored by the core.
type CandidateDeal struct {
	Coin       string
	BuyVenue   string
	SellVenue  string
	BuyMarket  string
	SellMarket string

	BuyPrice  float64 // buy venue best ask
	SellPrice float64 // sell venue best bid
	BuySize   float64 // size at buy venue best ask
	SellSize  float64 // size at sell venue best bid

	RawProfit    float64
	Profit       float64 // fee-adjusted
	TargetProfit float64
	Direction    Direction

	TriggerVenue string
	TriggerType  string
	StartedAt    time.Time

	BuyBookTS   time.Time
	SellBookTS  time.Time
	BuyBookLag  time.Duration
	SellBookLag time.Duration
}

// ActiveQuote is the resting maker order the engine maintains on the maker
// venue, one per instrument. Created on successful placement, mutated on
// successful amend, removed on cancel or fill.
type ActiveQuote struct {
	Coin       string
	Venue      string
	Market     string
	OrderID    string // exchange order id
	ClientID   string // correlation id
	Side       Side
	Price      float64
	Size       float64
	Breakeven  float64
	Direction  Direction
	HedgeVenue string // venue to fire the taker hedge on when filled
	UpdatedAt  time.Time
}

// QuotePlan is the target maker quote a reconciliation cycle settled on.
type QuotePlan struct {
	Coin       string
	Side       Side
	Price      float64
	Size       float64
	Profit     float64
	Low        float64 // acceptable price range, Low <= High on both sides
	High       float64
	Breakeven  float64
	Direction  Direction
	HedgeVenue string
}

// FillEvent reports that a resting maker quote was (partially) filled.
type FillEvent struct {
	Coin    string
	Venue   string
	Market  string
	OrderID string
	Side    Side
	Price   float64
	Size    float64
	At      time.Time
}
