package reconciler

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

type admitStub struct {
	maxUSD float64
	ok     bool
}

func (a admitStub) Admission(_, _, _, _ string, _, _ float64) (float64, bool) {
	return a.maxUSD, a.ok
}

type quoteStub struct {
	quote domain.ActiveQuote
	ok    bool
}

func (q quoteStub) Quote(string) (domain.ActiveQuote, bool) { return q.quote, q.ok }

type alertRecorder struct {
	alerts []domain.Alert
}

func (a *alertRecorder) Alert(_ context.Context, al domain.Alert) {
	a.alerts = append(a.alerts, al)
}

func book(bid, bidSize, ask, askSize float64) domain.OrderBook {
	now := time.Now().UTC()
	return domain.OrderBook{
		Bids:       []domain.PriceLevel{{Price: bid, Size: bidSize}},
		Asks:       []domain.PriceLevel{{Price: ask, Size: askSize}},
		ExchangeTS: now,
		ReceivedTS: now,
	}
}

// quoteVenues builds a maker venue M and one opposing venue O where only the
// buy side clears breakeven: M's book is 100.0/101.0, O's synthesized bid
// depth level sits at 100.6.
func quoteVenues() map[string]venue.Client {
	makerInfo := domain.MarketInfo{TickSize: 0.1, StepSize: 0.001, MinSize: 0.001, MakerFee: 0.0005, TakerFee: 0.001}
	opInfo := domain.MarketInfo{TickSize: 0.1, StepSize: 0.001, MinSize: 0.001, MakerFee: 0.0005, TakerFee: 0.001}

	m := venuetest.New("M").AddMarket("BTC", "BTC-USD", makerInfo)
	o := venuetest.New("O").AddMarket("BTC", "BTCUSDT", opInfo)
	m.SetBook("BTC-USD", book(100.0, 10, 101.0, 10))
	o.SetBook("BTCUSDT", book(100.8, 10, 100.9, 10))

	return map[string]venue.Client{"M": m, "O": o}
}

func newReconciler(venues map[string]venue.Client, admit Admitter, quotes QuoteReader, alerter Alerter) *Reconciler {
	resolver := threshold.Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005}
	return New(venues, admit, resolver, quotes, alerter, Config{
		MakerVenue:  "M",
		Depth:       2,
		Aggregation: AggregationMiddle,
		MinOrderUSD: 100,
	}, slog.Default())
}

func TestEvaluateCreatesBuyQuote(t *testing.T) {
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{}, nil)

	act := r.Evaluate(context.Background(), "BTC")
	require.Equal(t, ActionCreate, act.Type)
	require.Equal(t, domain.SideBuy, act.Plan.Side)

	// Range is [bestBid+tick, breakeven]: breakeven = 100.6*(1-0.0015-0.002).
	assert.InDelta(t, 100.1, act.Plan.Low, 1e-9)
	assert.InDelta(t, 100.24790, act.Plan.High, 1e-4)
	assert.InDelta(t, (act.Plan.Low+act.Plan.High)/2, act.Plan.Price, 1e-9)

	// Size is bounded by admitted notional at the range low.
	assert.InDelta(t, 1000/100.1, act.Plan.Size, 1e-6)
	assert.Equal(t, "O", act.Plan.HedgeVenue)
	assert.InDelta(t, act.Plan.High, act.Plan.Breakeven, 1e-9)
}

func TestEvaluateLowAggregationQuotesProtectiveBound(t *testing.T) {
	resolver := threshold.Resolver{ProfitOpen: 0.002, ProfitClose: 0.0005}
	r := New(quoteVenues(), admitStub{1000, true}, resolver, quoteStub{}, nil, Config{
		MakerVenue:  "M",
		Depth:       2,
		Aggregation: AggregationLow,
		MinOrderUSD: 100,
	}, slog.Default())

	act := r.Evaluate(context.Background(), "BTC")
	require.Equal(t, ActionCreate, act.Type)
	assert.InDelta(t, act.Plan.Low, act.Plan.Price, 1e-9)
}

func TestEvaluateTouchWhenQuoteStillInRange(t *testing.T) {
	active := domain.ActiveQuote{
		Coin:    "BTC",
		OrderID: "OID-1",
		Side:    domain.SideBuy,
		Price:   100.2,
		Size:    11,
	}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{active, true}, nil)

	act := r.Evaluate(context.Background(), "BTC")
	assert.Equal(t, ActionTouch, act.Type)
	assert.Equal(t, "OID-1", act.OrderID)
}

func TestEvaluateAmendWhenQuoteOutOfRange(t *testing.T) {
	active := domain.ActiveQuote{
		Coin:    "BTC",
		OrderID: "OID-1",
		Side:    domain.SideBuy,
		Price:   99.0,
		Size:    11,
	}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{active, true}, nil)

	act := r.Evaluate(context.Background(), "BTC")
	require.Equal(t, ActionAmend, act.Type)
	assert.Equal(t, "OID-1", act.OrderID)
	assert.Equal(t, domain.SideBuy, act.Plan.Side)
}

func TestEvaluateAmendWhenSizeGrew(t *testing.T) {
	active := domain.ActiveQuote{
		Coin:    "BTC",
		OrderID: "OID-1",
		Side:    domain.SideBuy,
		Price:   100.2,
		Size:    1, // less than the fresh plan size
	}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{active, true}, nil)

	assert.Equal(t, ActionAmend, r.Evaluate(context.Background(), "BTC").Type)
}

func TestEvaluateCancelWhenNoPlanSurvives(t *testing.T) {
	active := domain.ActiveQuote{Coin: "BTC", OrderID: "OID-1", Side: domain.SideBuy, Price: 100.2}
	r := newReconciler(quoteVenues(), admitStub{0, false}, quoteStub{active, true}, nil)

	act := r.Evaluate(context.Background(), "BTC")
	require.Equal(t, ActionCancel, act.Type)
	assert.Equal(t, "OID-1", act.OrderID)
}

func TestEvaluateCancelOnSideFlip(t *testing.T) {
	active := domain.ActiveQuote{Coin: "BTC", OrderID: "OID-1", Side: domain.SideSell, Price: 100.9}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{active, true}, nil)

	// Only the buy side clears breakeven; the resting sell must come down
	// before a buy quote goes up.
	act := r.Evaluate(context.Background(), "BTC")
	assert.Equal(t, ActionCancel, act.Type)
}

func TestEvaluateNoActionWithoutQuoteOrPlan(t *testing.T) {
	r := newReconciler(quoteVenues(), admitStub{0, false}, quoteStub{}, nil)
	assert.Equal(t, ActionNone, r.Evaluate(context.Background(), "BTC").Type)
}

func TestEvaluateThinOpposingDepthDiscarded(t *testing.T) {
	venues := quoteVenues()
	o := venues["O"].(*venuetest.Fake)
	o.SetBook("BTCUSDT", book(100.8, 0.005, 100.9, 0.005)) // ~0.5 USD of depth

	r := newReconciler(venues, admitStub{1000, true}, quoteStub{}, nil)
	assert.Equal(t, ActionNone, r.Evaluate(context.Background(), "BTC").Type)
}

func TestEvaluateStepsLevelWhenRestingAtBest(t *testing.T) {
	active := domain.ActiveQuote{
		Coin:    "BTC",
		OrderID: "OID-1",
		Side:    domain.SideBuy,
		Price:   100.0, // exactly the maker best bid
		Size:    5,
	}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{active, true}, nil)

	// The range low steps down a level so the quote never chases itself:
	// BidLevel(1) synthesizes 99.9, so low becomes 100.0 again via +tick.
	act := r.Evaluate(context.Background(), "BTC")
	require.Equal(t, ActionAmend, act.Type)
	assert.InDelta(t, 100.0, act.Plan.Low, 1e-9)
}

func TestAggregateInvertedRangeAlerts(t *testing.T) {
	rec := &alertRecorder{}
	r := newReconciler(quoteVenues(), admitStub{1000, true}, quoteStub{}, rec)

	cands := []rangeCandidate{
		{Side: domain.SideBuy, OppVenue: "O", Lo: 100.5, Hi: 100.9, Target: domain.PriceLevel{Price: 101, Size: 1}},
		{Side: domain.SideBuy, OppVenue: "P", Lo: 101.2, Hi: 100.4, Target: domain.PriceLevel{Price: 101, Size: 1}},
	}
	_, ok := r.aggregate(context.Background(), "BTC", domain.SideBuy, cands, domain.ActiveQuote{}, false)
	assert.False(t, ok)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, domain.AlertRangeInverted, rec.alerts[0].Event)
}
