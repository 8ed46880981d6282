// Package reconciler computes the target maker quote for an instrument each
// scan cycle and diffs it against the currently resting order, deciding
// no-op, amend, cancel, or create.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/threshold"
	"github.com/avelsh/crossarb/internal/venue"
)

// Aggregation selects how the surviving per-venue ranges collapse to one
// quote price.
type Aggregation string

const (
	// AggregationMiddle quotes the midpoint of the intersected range.
	AggregationMiddle Aggregation = "middle"
	// AggregationLow quotes the most protective bound of the intersected
	// range: the low end when buying, the high end when selling.
	AggregationLow Aggregation = "low"
)

// Admitter answers pre-trade admission: the maximum deal notional for a
// venue pair, or false when a leg is not currently tradable. Implemented by
// the orchestrator.
type Admitter interface {
	Admission(buyVenue, sellVenue, buyMarket, sellMarket string, buyPx, sellPx float64) (float64, bool)
}

// QuoteReader exposes the resting maker quote per instrument.
type QuoteReader interface {
	Quote(coin string) (domain.ActiveQuote, bool)
}

// Alerter surfaces anomalies to the notification collaborator.
type Alerter interface {
	Alert(ctx context.Context, a domain.Alert)
}

// ActionType enumerates reconciliation outcomes.
type ActionType int

const (
	ActionNone ActionType = iota
	ActionCreate
	ActionAmend
	ActionCancel
	// ActionTouch refreshes the resting quote's last-update marker without
	// any venue call: the quote is still inside the freshly computed range.
	ActionTouch
)

func (t ActionType) String() string {
	switch t {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionAmend:
		return "amend"
	case ActionCancel:
		return "cancel"
	case ActionTouch:
		return "touch"
	}
	return "unknown"
}

// Action is the decision of one reconciliation cycle for one instrument.
type Action struct {
	Type    ActionType
	Coin    string
	OrderID string           // resting order, for amend/cancel
	Plan    domain.QuotePlan // target quote, for create/amend
	Reason  string
}

// Config holds the reconciler's quoting parameters.
type Config struct {
	MakerVenue  string
	Depth       int         // opposing book reference depth index
	Aggregation Aggregation // range collapse policy
	MinOrderUSD float64     // opposing depth level must carry at least this notional
}

// Reconciler computes quote ranges against every opposing venue and turns
// them into a single lifecycle decision per cycle. It never mutates state
// itself; the orchestrator owns the in-flight gate and dispatch.
type Reconciler struct {
	venues   map[string]venue.Client
	admitter Admitter
	resolver threshold.Resolver
	quotes   QuoteReader
	alerter  Alerter // optional
	cfg      Config
	logger   *slog.Logger
}

// New creates a Reconciler. alerter may be nil.
func New(
	venues map[string]venue.Client,
	admitter Admitter,
	resolver threshold.Resolver,
	quotes QuoteReader,
	alerter Alerter,
	cfg Config,
	logger *slog.Logger,
) *Reconciler {
	if cfg.Depth <= 0 {
		cfg.Depth = 2
	}
	if cfg.Aggregation == "" {
		cfg.Aggregation = AggregationMiddle
	}
	return &Reconciler{
		venues:   venues,
		admitter: admitter,
		resolver: resolver,
		quotes:   quotes,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// rangeCandidate is one opposing venue's surviving quote range, normalized so
// Lo <= Hi on both sides.
type rangeCandidate struct {
	Side        domain.Side
	OppVenue    string
	Fees        float64
	Target      domain.PriceLevel // opposing reference depth level
	MaxSizeCoin float64
	Lo, Hi      float64
	Breakeven   float64
	Direction   domain.Direction
}

// Evaluate runs one reconciliation cycle for coin. The returned Action is
// ActionNone when nothing needs to happen (including every expected
// data-unavailability condition).
func (r *Reconciler) Evaluate(ctx context.Context, coin string) Action {
	maker, ok := r.venues[r.cfg.MakerVenue]
	if !ok {
		return Action{Type: ActionNone, Coin: coin}
	}
	makerMarket, ok := maker.Markets()[coin]
	if !ok {
		return Action{Type: ActionNone, Coin: coin}
	}
	makerBook, ok := maker.OrderBook(makerMarket)
	if !ok || !makerBook.Valid() {
		return Action{Type: ActionNone, Coin: coin}
	}
	makerInfo, ok := maker.Instrument(makerMarket)
	if !ok {
		return Action{Type: ActionNone, Coin: coin}
	}

	active, hasActive := r.quotes.Quote(coin)

	var buys, sells []rangeCandidate
	for name, op := range r.venues {
		if name == r.cfg.MakerVenue {
			continue
		}
		opMarket, ok := op.Markets()[coin]
		if !ok {
			continue
		}
		opBook, ok := op.OrderBook(opMarket)
		if !ok || !opBook.Valid() {
			continue
		}
		opInfo, ok := op.Instrument(opMarket)
		if !ok {
			continue
		}

		if c, ok := r.buyCandidate(coin, maker, op, makerMarket, opMarket, makerBook, opBook, makerInfo, opInfo, active, hasActive); ok {
			buys = append(buys, c)
		}
		if c, ok := r.sellCandidate(coin, maker, op, makerMarket, opMarket, makerBook, opBook, makerInfo, opInfo, active, hasActive); ok {
			sells = append(sells, c)
		}
	}

	buyPlan, buyOK := r.aggregate(ctx, coin, domain.SideBuy, buys, active, hasActive)
	sellPlan, sellOK := r.aggregate(ctx, coin, domain.SideSell, sells, active, hasActive)

	return r.decide(coin, active, hasActive, buyPlan, buyOK, sellPlan, sellOK, makerInfo.TickSize)
}

// buyCandidate computes the buy-side quote range against one opposing venue:
// the maker venue buys the quote, the hedge sells into the opposing bids.
func (r *Reconciler) buyCandidate(
	coin string,
	maker, op venue.Client,
	makerMarket, opMarket string,
	makerBook, opBook domain.OrderBook,
	makerInfo, opInfo domain.MarketInfo,
	active domain.ActiveQuote,
	hasActive bool,
) (rangeCandidate, bool) {
	tick := makerInfo.TickSize

	// Quote one tick better than the book, stepping a level when the resting
	// order already holds the top so we do not chase our own price.
	best := makerBook.BestBid().Price + tick
	if hasActive && active.Side == domain.SideBuy && active.Price == makerBook.BestBid().Price {
		best = makerBook.BidLevel(1, tick).Price + tick
	}
	worst := makerBook.BestAsk().Price - tick

	oppLevel := opBook.BidLevel(r.cfg.Depth, opInfo.TickSize)
	if oppLevel.Price <= 0 || oppLevel.Size*oppLevel.Price < r.cfg.MinOrderUSD {
		return rangeCandidate{}, false
	}

	maxUSD, ok := r.admitter.Admission(maker.Name(), op.Name(), makerMarket, opMarket, best, oppLevel.Price)
	if !ok {
		return rangeCandidate{}, false
	}

	buyPos := maker.Positions()[makerMarket]
	sellPos := op.Positions()[opMarket]
	direction := domain.Classify(buyPos, sellPos)
	key := threshold.Key{BuyVenue: maker.Name(), SellVenue: op.Name(), Coin: coin}
	target, tradable := r.resolver.Resolve(key, direction)
	if !tradable {
		return rangeCandidate{}, false
	}

	fees := makerInfo.MakerFee + opInfo.TakerFee
	breakeven := oppLevel.Price * (1 - fees - target)

	lo, hi := best, worst
	switch {
	case breakeven >= worst:
		// Whole book gap is profitable.
	case breakeven >= best:
		hi = breakeven
	default:
		return rangeCandidate{}, false
	}
	if lo > hi {
		return rangeCandidate{}, false
	}

	return rangeCandidate{
		Side:        domain.SideBuy,
		OppVenue:    op.Name(),
		Fees:        fees,
		Target:      oppLevel,
		MaxSizeCoin: maxUSD / best,
		Lo:          lo,
		Hi:          hi,
		Breakeven:   breakeven,
		Direction:   direction,
	}, true
}

// sellCandidate mirrors buyCandidate: the maker venue sells the quote, the
// hedge buys from the opposing asks.
func (r *Reconciler) sellCandidate(
	coin string,
	maker, op venue.Client,
	makerMarket, opMarket string,
	makerBook, opBook domain.OrderBook,
	makerInfo, opInfo domain.MarketInfo,
	active domain.ActiveQuote,
	hasActive bool,
) (rangeCandidate, bool) {
	tick := makerInfo.TickSize

	best := makerBook.BestAsk().Price - tick
	if hasActive && active.Side == domain.SideSell && active.Price == makerBook.BestAsk().Price {
		best = makerBook.AskLevel(1, tick).Price - tick
	}
	worst := makerBook.BestBid().Price + tick

	oppLevel := opBook.AskLevel(r.cfg.Depth, opInfo.TickSize)
	if oppLevel.Price <= 0 || oppLevel.Size*oppLevel.Price < r.cfg.MinOrderUSD {
		return rangeCandidate{}, false
	}

	maxUSD, ok := r.admitter.Admission(op.Name(), maker.Name(), opMarket, makerMarket, oppLevel.Price, best)
	if !ok {
		return rangeCandidate{}, false
	}

	buyPos := op.Positions()[opMarket]
	sellPos := maker.Positions()[makerMarket]
	direction := domain.Classify(buyPos, sellPos)
	key := threshold.Key{BuyVenue: op.Name(), SellVenue: maker.Name(), Coin: coin}
	target, tradable := r.resolver.Resolve(key, direction)
	if !tradable {
		return rangeCandidate{}, false
	}

	fees := makerInfo.MakerFee + opInfo.TakerFee
	breakeven := oppLevel.Price * (1 + fees + target)

	lo, hi := worst, best
	switch {
	case breakeven <= worst:
		// Whole book gap is profitable.
	case breakeven <= best:
		lo = breakeven
	default:
		return rangeCandidate{}, false
	}
	if lo > hi {
		return rangeCandidate{}, false
	}

	return rangeCandidate{
		Side:        domain.SideSell,
		OppVenue:    op.Name(),
		Fees:        fees,
		Target:      oppLevel,
		MaxSizeCoin: maxUSD / best,
		Lo:          lo,
		Hi:          hi,
		Breakeven:   breakeven,
		Direction:   direction,
	}, true
}

// aggregate intersects the surviving ranges for one side and settles on a
// price, size and expected profit. An inverted intersection is an anomaly:
// alerted, and the side yields no plan.
func (r *Reconciler) aggregate(
	ctx context.Context,
	coin string,
	side domain.Side,
	cands []rangeCandidate,
	active domain.ActiveQuote,
	hasActive bool,
) (domain.QuotePlan, bool) {
	if len(cands) == 0 {
		return domain.QuotePlan{}, false
	}

	lo, hi := cands[0].Lo, cands[0].Hi
	for _, c := range cands[1:] {
		if c.Lo > lo {
			lo = c.Lo
		}
		if c.Hi < hi {
			hi = c.Hi
		}
	}
	if lo > hi {
		r.logger.Warn("aggregate quote range inverted",
			slog.String("coin", coin),
			slog.String("side", string(side)),
			slog.Float64("lo", lo),
			slog.Float64("hi", hi),
		)
		if r.alerter != nil {
			r.alerter.Alert(ctx, domain.Alert{
				Event:   domain.AlertRangeInverted,
				Title:   "quote range inverted",
				Message: "coin " + coin + " side " + string(side),
				At:      time.Now().UTC(),
			})
		}
		return domain.QuotePlan{}, false
	}

	var price float64
	switch r.cfg.Aggregation {
	case AggregationLow:
		if side == domain.SideBuy {
			price = lo
		} else {
			price = hi
		}
	default:
		price = (lo + hi) / 2
	}

	// The hedge target is the opposing venue whose level yields the best
	// profit at the settled price; size is bounded by its depth.
	bestIdx, bestProfit := 0, profitAt(cands[0], side, price)
	for i, c := range cands[1:] {
		if p := profitAt(c, side, price); p > bestProfit {
			bestIdx, bestProfit = i+1, p
		}
	}
	chosen := cands[bestIdx]
	size := chosen.MaxSizeCoin
	if chosen.Target.Size < size {
		size = chosen.Target.Size
	}

	return domain.QuotePlan{
		Coin:       coin,
		Side:       side,
		Price:      price,
		Size:       size,
		Profit:     bestProfit,
		Low:        lo,
		High:       hi,
		Breakeven:  chosen.Breakeven,
		Direction:  chosen.Direction,
		HedgeVenue: chosen.OppVenue,
	}, true
}

func profitAt(c rangeCandidate, side domain.Side, price float64) float64 {
	if side == domain.SideBuy {
		return (c.Target.Price-price)/price - c.Fees
	}
	return (price-c.Target.Price)/c.Target.Price - c.Fees
}

// decide diffs the chosen plan against the resting order. A side flip only
// cancels; the fresh create follows on a later cycle once the cancel
// resolved.
func (r *Reconciler) decide(
	coin string,
	active domain.ActiveQuote,
	hasActive bool,
	buyPlan domain.QuotePlan, buyOK bool,
	sellPlan domain.QuotePlan, sellOK bool,
	tick float64,
) Action {
	var plan domain.QuotePlan
	var havePlan bool
	switch {
	case buyOK && sellOK:
		// Prefer the resting side to avoid flip-flopping the quote.
		if hasActive && active.Side == domain.SideSell {
			plan = sellPlan
		} else if hasActive && active.Side == domain.SideBuy {
			plan = buyPlan
		} else if sellPlan.Profit > buyPlan.Profit {
			plan = sellPlan
		} else {
			plan = buyPlan
		}
		havePlan = true
	case buyOK:
		plan, havePlan = buyPlan, true
	case sellOK:
		plan, havePlan = sellPlan, true
	}

	if !hasActive {
		if !havePlan {
			return Action{Type: ActionNone, Coin: coin}
		}
		return Action{Type: ActionCreate, Coin: coin, Plan: plan, Reason: "no resting quote"}
	}

	if !havePlan || plan.Side != active.Side {
		return Action{Type: ActionCancel, Coin: coin, OrderID: active.OrderID, Reason: "quote side expired"}
	}

	inRange := active.Price >= plan.Low-tick && active.Price <= plan.High+tick
	if inRange && plan.Size <= active.Size {
		return Action{Type: ActionTouch, Coin: coin, OrderID: active.OrderID}
	}
	return Action{Type: ActionAmend, Coin: coin, OrderID: active.OrderID, Plan: plan, Reason: "quote out of range"}
}
