// Package venue defines the contract between the decision engine and the
// per-venue exchange connectors. Connectors own all WebSocket/REST plumbing,
// authentication and rate limiting; the engine only consumes the narrow
// surface below.
package venue

import (
	"context"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
)

// ResponseStatus is the connector's verdict on a lifecycle request.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// OrderSpec describes a create or amend request. ClientID is the engine's
// correlation id; the connector must echo it back on the Response.
type OrderSpec struct {
	ClientID string
	Market   string
	Side     domain.Side
	Price    float64
	Size     float64
}

// Response resolves one lifecycle request. Connectors fulfil the one-shot
// channel returned by CreateOrder/AmendOrder/CancelOrder from their receive
// path; the engine races it against a bounded timeout.
type Response struct {
	ClientID        string
	ExchangeOrderID string
	Status          ResponseStatus
	Message         string
	FilledPrice     float64
	FilledSize      float64
	Timestamp       time.Time
}

// OpenOrder is one live order as the venue reports it, used by the
// reconciliation sweep to detect orders the engine no longer tracks.
type OpenOrder struct {
	ExchangeOrderID string
	Market          string
	Side            domain.Side
	Price           float64
	Size            float64
}

// Trigger is a connector's notification that a market moved: a book update,
// a public trade, or a fill on our own order.
type Trigger struct {
	Venue string
	Coin  string
	Side  domain.Side // side of the book that moved
	Type  string      // "ob", "trade", "fill"
}

// Client is one venue connector as seen by the engine. Snapshot accessors
// (OrderBook, Positions, AvailableBalance) are non-blocking reads of the
// connector's caches; lifecycle calls enqueue work on the connector's task
// queue and resolve through the returned one-shot channel.
type Client interface {
	// Name returns the venue identifier, e.g. "BINANCE".
	Name() string

	// Markets maps instrument (coin) to this venue's market identifier.
	Markets() map[string]string

	// Instrument returns tick/step/fee metadata for a market.
	Instrument(market string) (domain.MarketInfo, bool)

	// OrderBook returns the connector's latest book for a market. The
	// second return is false when no book has been received yet.
	OrderBook(market string) (domain.OrderBook, bool)

	// Positions returns current signed exposure per market.
	Positions() map[string]domain.Position

	// AvailableBalance returns tradable USD for a market (or the venue-wide
	// balance when the venue does not segregate per market).
	AvailableBalance(market string) domain.Balance

	// RefreshBalances asks the connector to re-pull balances and positions.
	// While the refresh is in flight AvailableBalance reports Updating.
	RefreshBalances(ctx context.Context) error

	// FitSizes rounds price and size to the venue's tick and step.
	FitSizes(price, size float64, market string) (float64, float64)

	CreateOrder(ctx context.Context, spec OrderSpec) <-chan Response
	AmendOrder(ctx context.Context, orderID string, spec OrderSpec) <-chan Response
	CancelOrder(ctx context.Context, orderID, market string) <-chan Response

	// OpenOrders lists live orders on the venue for the given markets.
	OpenOrders(ctx context.Context, markets []string) ([]OpenOrder, error)
}
