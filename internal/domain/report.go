package domain

import "time"

// DealStatus summarizes how both legs of an executed deal resolved.
type DealStatus string

const (
	DealStatusSuccess    DealStatus = "success"
	DealStatusDisbalance DealStatus = "disbalance"
	DealStatusFullFail   DealStatus = "full_fail"
	DealStatusUndefined  DealStatus = "undefined"
)

// LegResult is one leg of an executed deal as the venue reported it back.
type LegResult struct {
	Venue           string
	Market          string
	Side            Side
	ClientID        string
	ExchangeOrderID string
	TargetPrice     float64
	FittedPrice     float64
	RealPrice       float64
	TargetSize      float64
	RealSize        float64
	Placed          bool
	PlaceLatency    time.Duration
}

// DealReport is the structured record of one completed taker arbitrage,
// emitted to the report sink and the notifier once both legs settle.
type DealReport struct {
	ID           string
	Coin         string
	Direction    Direction
	Buy          LegResult
	Sell         LegResult
	SizeUSD      float64
	TargetProfit float64
	ProfitTarget float64 // expected relative profit at decision time
	ProfitReal   float64 // realized relative profit from leg fills
	Status       DealStatus
	TriggerVenue string
	TriggerType  string
	CountedAt    time.Time // when the scan cycle started
	SentAt       time.Time // when both legs were dispatched
	SettledAt    time.Time
}

// HedgeReport is the record of a taker hedge fired against a maker fill.
type HedgeReport struct {
	ID         string
	Coin       string
	Fill       FillEvent
	Hedge      LegResult
	ProfitReal float64
	Disbalance float64 // coin amount left unhedged
	SettledAt  time.Time
}

// Alert is an operator-facing anomaly or failure event.
type Alert struct {
	Event   string
	Title   string
	Message string
	At      time.Time
}

// Alert event names used across the engine.
const (
	AlertOrderTimeout   = "order_timeout"
	AlertOrderMismatch  = "order_mismatch"
	AlertUntrackedOrder = "untracked_order"
	AlertRangeInverted  = "range_inverted"
	AlertOrderRejected  = "order_rejected"
)
