// Package venuetest provides an in-memory venue.Client for tests.
package venuetest

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/venue"
)

// AmendCall records one AmendOrder invocation.
type AmendCall struct {
	OrderID string
	Spec    venue.OrderSpec
}

// CancelCall records one CancelOrder invocation.
type CancelCall struct {
	OrderID string
	Market  string
}

// Fake is a scriptable venue.Client. Zero-value responders acknowledge every
// lifecycle call with StatusSuccess; set the Resp hooks to override, or set
// them to return nil to simulate a connector that never answers.
type Fake struct {
	mu          sync.Mutex
	name        string
	markets     map[string]string
	instruments map[string]domain.MarketInfo
	books       map[string]domain.OrderBook
	positions   map[string]domain.Position
	balances    map[string]domain.Balance
	open        []venue.OpenOrder
	refreshes   int

	CreateCalls []venue.OrderSpec
	AmendCalls  []AmendCall
	CancelCalls []CancelCall

	CreateResp func(spec venue.OrderSpec) *venue.Response
	AmendResp  func(orderID string, spec venue.OrderSpec) *venue.Response
	CancelResp func(orderID, market string) *venue.Response
}

// New creates a Fake named name.
func New(name string) *Fake {
	return &Fake{
		name:        name,
		markets:     make(map[string]string),
		instruments: make(map[string]domain.MarketInfo),
		books:       make(map[string]domain.OrderBook),
		positions:   make(map[string]domain.Position),
		balances:    make(map[string]domain.Balance),
	}
}

// AddMarket registers a coin on this venue with its metadata.
func (f *Fake) AddMarket(coin, market string, info domain.MarketInfo) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[coin] = market
	f.instruments[market] = info
	return f
}

// SetBook installs the current order book for a market.
func (f *Fake) SetBook(market string, book domain.OrderBook) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[market] = book
	return f
}

// SetPosition installs the current position for a market.
func (f *Fake) SetPosition(market string, pos domain.Position) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[market] = pos
	return f
}

// SetBalance installs the available balance for a market.
func (f *Fake) SetBalance(market string, bal domain.Balance) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[market] = bal
	return f
}

// SetOpenOrders installs the venue's live open-order list.
func (f *Fake) SetOpenOrders(orders []venue.OpenOrder) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = orders
	return f
}

// Refreshes returns how many times RefreshBalances was called.
func (f *Fake) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *Fake) Name() string { return f.name }

func (f *Fake) Markets() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.markets))
	for k, v := range f.markets {
		out[k] = v
	}
	return out
}

func (f *Fake) Instrument(market string) (domain.MarketInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.instruments[market]
	return info, ok
}

func (f *Fake) OrderBook(market string) (domain.OrderBook, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.books[market]
	return book, ok
}

func (f *Fake) Positions() map[string]domain.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Position, len(f.positions))
	for k, v := range f.positions {
		out[k] = v
	}
	return out
}

func (f *Fake) AvailableBalance(market string) domain.Balance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bal, ok := f.balances[market]; ok {
		return bal
	}
	return domain.Balance{Updating: true}
}

func (f *Fake) RefreshBalances(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *Fake) FitSizes(price, size float64, market string) (float64, float64) {
	f.mu.Lock()
	info, ok := f.instruments[market]
	f.mu.Unlock()
	if !ok {
		return price, size
	}
	if info.TickSize > 0 {
		price = math.Floor(price/info.TickSize) * info.TickSize
	}
	if info.StepSize > 0 {
		size = math.Floor(size/info.StepSize) * info.StepSize
	}
	return price, size
}

func (f *Fake) CreateOrder(_ context.Context, spec venue.OrderSpec) <-chan venue.Response {
	f.mu.Lock()
	f.CreateCalls = append(f.CreateCalls, spec)
	hook := f.CreateResp
	f.mu.Unlock()

	if hook != nil {
		return deliver(hook(spec))
	}
	return deliver(&venue.Response{
		ClientID:        spec.ClientID,
		ExchangeOrderID: uuid.New().String(),
		Status:          venue.StatusSuccess,
		FilledPrice:     spec.Price,
		FilledSize:      spec.Size,
		Timestamp:       time.Now().UTC(),
	})
}

func (f *Fake) AmendOrder(_ context.Context, orderID string, spec venue.OrderSpec) <-chan venue.Response {
	f.mu.Lock()
	f.AmendCalls = append(f.AmendCalls, AmendCall{OrderID: orderID, Spec: spec})
	hook := f.AmendResp
	f.mu.Unlock()

	if hook != nil {
		return deliver(hook(orderID, spec))
	}
	return deliver(&venue.Response{
		ClientID:        spec.ClientID,
		ExchangeOrderID: orderID,
		Status:          venue.StatusSuccess,
		Timestamp:       time.Now().UTC(),
	})
}

func (f *Fake) CancelOrder(_ context.Context, orderID, market string) <-chan venue.Response {
	f.mu.Lock()
	f.CancelCalls = append(f.CancelCalls, CancelCall{OrderID: orderID, Market: market})
	hook := f.CancelResp
	f.mu.Unlock()

	if hook != nil {
		return deliver(hook(orderID, market))
	}
	return deliver(&venue.Response{
		ExchangeOrderID: orderID,
		Status:          venue.StatusSuccess,
		Timestamp:       time.Now().UTC(),
	})
}

func (f *Fake) OpenOrders(_ context.Context, _ []string) ([]venue.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]venue.OpenOrder, len(f.open))
	copy(out, f.open)
	return out, nil
}

// deliver wraps a response in a fulfilled one-shot channel. A nil response
// returns an empty channel that never resolves, simulating a venue timeout.
func deliver(resp *venue.Response) <-chan venue.Response {
	ch := make(chan venue.Response, 1)
	if resp != nil {
		ch <- *resp
	}
	return ch
}
