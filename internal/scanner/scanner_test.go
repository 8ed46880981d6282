package scanner

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/threshold"
	"github.com/avelsh/crossarb/internal/venue"
	"github.com/avelsh/crossarb/internal/venue/venuetest"
)

type quoteStub struct {
	quote domain.ActiveQuote
	ok    bool
}

func (q quoteStub) Quote(string) (domain.ActiveQuote, bool) { return q.quote, q.ok }

type gateStub bool

func (g gateStub) CloseDealActive() bool { return bool(g) }

type captureObserver struct {
	keys    []threshold.Key
	profits []float64
}

func (o *captureObserver) Observe(_ context.Context, key threshold.Key, rawProfit float64) {
	o.keys = append(o.keys, key)
	o.profits = append(o.profits, rawProfit)
}

func freshBook(bid, ask float64) domain.OrderBook {
	now := time.Now().UTC()
	return domain.OrderBook{
		Bids:       []domain.PriceLevel{{Price: bid, Size: 3}},
		Asks:       []domain.PriceLevel{{Price: ask, Size: 2}},
		ExchangeTS: now.Add(-10 * time.Millisecond),
		ReceivedTS: now,
	}
}

func testVenues() (map[string]venue.Client, *venuetest.Fake, *venuetest.Fake) {
	info := domain.MarketInfo{TickSize: 0.1, StepSize: 0.001, MinSize: 0.001, TakerFee: 0.001, MakerFee: 0.0005}

	a := venuetest.New("A").AddMarket("BTC", "BTC-USD", info)
	b := venuetest.New("B").AddMarket("BTC", "BTCUSDT", info)

	// Buying the ask on A at 100.0 and selling the bid on B at 100.5 yields
	// raw profit 0.005, 0.003 after both taker fees.
	a.SetBook("BTC-USD", freshBook(99.8, 100.0))
	b.SetBook("BTCUSDT", freshBook(100.5, 100.7))

	return map[string]venue.Client{"A": a, "B": b}, a, b
}

func newScanner(venues map[string]venue.Client, obs Observer, quotes QuoteReader, gate CloseGate, cfg Config) *Scanner {
	resolver := threshold.Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005}
	return New(venues, resolver, obs, quotes, gate, cfg, slog.Default())
}

func TestEvaluateEmitsCandidate(t *testing.T) {
	venues, _, _ := testVenues()
	obs := &captureObserver{}
	s := newScanner(venues, obs, nil, nil, Config{MaxBookAge: time.Second, MaxBookLag: 500 * time.Millisecond})

	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"})
	require.Len(t, deals, 1)

	deal := deals[0]
	assert.Equal(t, "A", deal.BuyVenue)
	assert.Equal(t, "B", deal.SellVenue)
	assert.Equal(t, "BTC-USD", deal.BuyMarket)
	assert.Equal(t, "BTCUSDT", deal.SellMarket)
	assert.InDelta(t, 0.005, deal.RawProfit, 1e-9)
	assert.InDelta(t, 0.003, deal.Profit, 1e-9)
	assert.Equal(t, domain.DirectionOpen, deal.Direction)
	assert.InDelta(t, 0.002, deal.TargetProfit, 1e-9)
	assert.InDelta(t, 2.0, deal.BuySize, 1e-9)  // A best ask size
	assert.InDelta(t, 3.0, deal.SellSize, 1e-9) // B best bid size

	// Every evaluation feeds the histogram, qualifying or not.
	require.Len(t, obs.keys, 1)
	assert.Equal(t, threshold.Key{BuyVenue: "A", SellVenue: "B", Coin: "BTC"}, obs.keys[0])
	assert.InDelta(t, 0.005, obs.profits[0], 1e-9)
}

func TestEvaluateSellTriggerSwapsRoles(t *testing.T) {
	venues, _, _ := testVenues()
	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})

	// A sell-side trigger on B makes B the sell leg and A the buy leg.
	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "B", Coin: "BTC", Side: domain.SideSell, Type: "ob"})
	require.Len(t, deals, 1)
	assert.Equal(t, "A", deals[0].BuyVenue)
	assert.Equal(t, "B", deals[0].SellVenue)
}

func TestEvaluateBelowTargetEmitsNothing(t *testing.T) {
	venues, _, b := testVenues()
	// Shrink the spread: raw 0.002, net 0.0 after fees, below the 0.002 open target.
	b.SetBook("BTCUSDT", freshBook(100.2, 100.4))

	obs := &captureObserver{}
	s := newScanner(venues, obs, nil, nil, Config{MaxBookAge: time.Second})

	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"})
	assert.Empty(t, deals)
	assert.Len(t, obs.keys, 1, "observation happens before the target check")
}

func TestEvaluateDirectionFromPositions(t *testing.T) {
	venues, a, b := testVenues()
	a.SetPosition("BTC-USD", domain.Position{AmountCoin: -1, AmountUSD: -100})
	b.SetPosition("BTCUSDT", domain.Position{AmountCoin: 1, AmountUSD: 100})

	// Close deals resolve against the lower close target.
	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})
	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"})
	require.Len(t, deals, 1)
	assert.Equal(t, domain.DirectionClose, deals[0].Direction)
	assert.InDelta(t, 0.0005, deals[0].TargetProfit, 1e-9)
}

func TestEvaluateStaleBookSkipsPair(t *testing.T) {
	venues, a, _ := testVenues()
	stale := freshBook(99.8, 100.0)
	stale.ReceivedTS = stale.ReceivedTS.Add(-5 * time.Second)
	a.SetBook("BTC-USD", stale)

	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))
}

func TestEvaluateStaleBookAllowedWhileClosing(t *testing.T) {
	venues, a, _ := testVenues()
	stale := freshBook(99.8, 100.0)
	stale.ReceivedTS = stale.ReceivedTS.Add(-5 * time.Second)
	a.SetBook("BTC-USD", stale)

	s := newScanner(venues, nil, nil, gateStub(true), Config{MaxBookAge: time.Second})
	assert.Len(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}), 1)
}

func TestEvaluateLaggedBookSkipsPair(t *testing.T) {
	venues, _, b := testVenues()
	lagged := freshBook(100.5, 100.7)
	lagged.ExchangeTS = lagged.ReceivedTS.Add(-2 * time.Second)
	b.SetBook("BTCUSDT", lagged)

	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second, MaxBookLag: 500 * time.Millisecond})
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))
}

func TestEvaluateMissingMarketSkipsPair(t *testing.T) {
	venues, _, _ := testVenues()
	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "DOGE", Side: domain.SideBuy, Type: "ob"}))
}

func TestEvaluateUnknownTriggerVenue(t *testing.T) {
	venues, _, _ := testVenues()
	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})
	assert.Nil(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "X", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))
}

// targetStub is a TargetSource returning one learned value for every key.
type targetStub float64

func (s targetStub) Target(threshold.Key) (float64, bool) { return float64(s), true }

// noInstrument hides market metadata while leaving the rest of the venue
// intact.
type noInstrument struct {
	venue.Client
}

func (noInstrument) Instrument(string) (domain.MarketInfo, bool) {
	return domain.MarketInfo{}, false
}

func TestEvaluateNegativeLearnedTargetRefusesOpen(t *testing.T) {
	venues, a, b := testVenues()
	resolver := threshold.Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005, Learned: targetStub(-0.001)}
	s := New(venues, resolver, nil, nil, nil, Config{MaxBookAge: time.Second}, slog.Default())

	// Net profit 0.003 clears the static open base, but the learned
	// distribution says this direction cannot clear fees: no candidate.
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))

	// Closing existing positions still chases the negative target.
	a.SetPosition("BTC-USD", domain.Position{AmountCoin: -1, AmountUSD: -100})
	b.SetPosition("BTCUSDT", domain.Position{AmountCoin: 1, AmountUSD: 100})
	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"})
	require.Len(t, deals, 1)
	assert.Equal(t, domain.DirectionClose, deals[0].Direction)
	assert.InDelta(t, -0.001, deals[0].TargetProfit, 1e-9)
}

func TestEvaluateCloseTargetAboveProfitEmitsNothing(t *testing.T) {
	venues, a, b := testVenues()
	a.SetPosition("BTC-USD", domain.Position{AmountCoin: -1, AmountUSD: -100})
	b.SetPosition("BTCUSDT", domain.Position{AmountCoin: 1, AmountUSD: 100})

	// Classified as close, but the close target sits above the 0.003 profit.
	resolver := threshold.Resolver{ProfitOpen: 0.002, ProfitClose: 0.004}
	s := New(venues, resolver, nil, nil, nil, Config{MaxBookAge: time.Second}, slog.Default())
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))
}

func TestEvaluateMissingInstrumentSkipsPair(t *testing.T) {
	venues, _, b := testVenues()
	venues["B"] = noInstrument{b}

	s := newScanner(venues, nil, nil, nil, Config{MaxBookAge: time.Second})
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))
}

func TestMakerQuoteGuard(t *testing.T) {
	venues, _, _ := testVenues()
	quotes := quoteStub{quote: domain.ActiveQuote{Coin: "BTC", Side: domain.SideBuy}, ok: true}
	s := newScanner(venues, nil, quotes, nil, Config{MaxBookAge: time.Second, MakerVenue: "A"})

	// Trigger side matches the resting quote's side: the fill+hedge path owns it.
	assert.Empty(t, s.Evaluate(context.Background(), venue.Trigger{Venue: "A", Coin: "BTC", Side: domain.SideBuy, Type: "ob"}))

	// Opposite side still scans.
	deals := s.Evaluate(context.Background(), venue.Trigger{Venue: "B", Coin: "BTC", Side: domain.SideSell, Type: "ob"})
	assert.Len(t, deals, 1)
}
