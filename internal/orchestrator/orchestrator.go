// Package orchestrator owns every order-touching decision: admission
// control, sizing, the quote lifecycle, taker arbitrage execution, hedging
// of maker fills, and the periodic sweep against the venue's live orders.
// All state transitions run under per-key in-flight gating so no key ever
// has two operations racing.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/reconciler"
	"github.com/avelsh/crossarb/internal/venue"
)

// Config holds the orchestrator's execution parameters.
type Config struct {
	MakerVenue      string
	ResponseTimeout time.Duration // bound on every venue lifecycle response
	Haircut         float64       // fraction shaved off admitted notional
	Slippage        float64       // taker limit price padding past the book
	MinDealUSD      float64
	MaxDealUSD      float64
	SettlementPause time.Duration // admission pause after an executed deal
}

func (c *Config) withDefaults() {
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 200 * time.Millisecond
	}
	if c.Haircut <= 0 {
		c.Haircut = 0.02
	}
	if c.SettlementPause <= 0 {
		c.SettlementPause = 5 * time.Second
	}
}

// Orchestrator coordinates order placement across venues.
type Orchestrator struct {
	venues map[string]venue.Client
	store  domain.DealStore
	sink   domain.ReportSink
	cfg    Config
	logger *slog.Logger

	inflight *inflightStore
	quotes   *quoteStore
	dealGate atomic.Bool

	mu          sync.Mutex
	pausedUntil time.Time
	closeActive bool

	now func() time.Time
}

// New creates an Orchestrator.
func New(
	venues map[string]venue.Client,
	store domain.DealStore,
	sink domain.ReportSink,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		venues:   venues,
		store:    store,
		sink:     sink,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "orchestrator")),
		inflight: newInflightStore(),
		quotes:   newQuoteStore(),
		now:      time.Now,
	}
}

// Quote returns the tracked resting quote for coin.
func (o *Orchestrator) Quote(coin string) (domain.ActiveQuote, bool) {
	return o.quotes.Get(coin)
}

// ActiveQuotes lists every tracked resting quote.
func (o *Orchestrator) ActiveQuotes() []domain.ActiveQuote {
	return o.quotes.All()
}

// CloseDealActive reports whether a position-reducing deal is currently
// executing; the scanner relaxes book freshness bounds while it is.
func (o *Orchestrator) CloseDealActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closeActive
}

// Alert publishes an anomaly to the report sink.
func (o *Orchestrator) Alert(ctx context.Context, a domain.Alert) {
	if a.At.IsZero() {
		a.At = o.now().UTC()
	}
	if err := o.sink.PublishAlert(ctx, a); err != nil {
		o.logger.Error("publish alert failed",
			slog.String("event", a.Event),
			slog.String("error", err.Error()))
	}
}

// Admission answers whether a deal between the two venues may currently be
// sized, and for how much USD. It fails closed while either venue's balance
// is refreshing and during the post-deal settlement pause.
func (o *Orchestrator) Admission(buyVenue, sellVenue, buyMarket, sellMarket string, buyPx, sellPx float64) (float64, bool) {
	o.mu.Lock()
	paused := o.now().Before(o.pausedUntil)
	o.mu.Unlock()
	if paused {
		return 0, false
	}

	bv, ok := o.venues[buyVenue]
	if !ok {
		return 0, false
	}
	sv, ok := o.venues[sellVenue]
	if !ok {
		return 0, false
	}
	buyBal := bv.AvailableBalance(buyMarket)
	sellBal := sv.AvailableBalance(sellMarket)
	if buyBal.Updating || sellBal.Updating {
		return 0, false
	}

	maxUSD := math.Min(buyBal.Available(domain.SideBuy), sellBal.Available(domain.SideSell))
	if o.cfg.MaxDealUSD > 0 && maxUSD > o.cfg.MaxDealUSD {
		maxUSD = o.cfg.MaxDealUSD
	}
	if maxUSD < o.cfg.MinDealUSD || maxUSD <= 0 {
		return 0, false
	}
	return maxUSD, true
}

// SizeAndRound converts a USD notional to a coin size legal on both venues:
// floored to the coarser of the two step sizes, rejected below either
// minimum order size.
func (o *Orchestrator) SizeAndRound(buyVenue, sellVenue, buyMarket, sellMarket string, sizeUSD, buyPx float64) (float64, error) {
	bv, ok := o.venues[buyVenue]
	if !ok {
		return 0, domain.ErrMissingMarket
	}
	sv, ok := o.venues[sellVenue]
	if !ok {
		return 0, domain.ErrMissingMarket
	}
	buyInfo, ok := bv.Instrument(buyMarket)
	if !ok {
		return 0, domain.ErrMissingMarket
	}
	sellInfo, ok := sv.Instrument(sellMarket)
	if !ok {
		return 0, domain.ErrMissingMarket
	}

	step := math.Max(buyInfo.StepSize, sellInfo.StepSize)
	size := sizeUSD / buyPx
	if step > 0 {
		size = math.Floor(size/step) * step
	}
	if size < buyInfo.MinSize || size < sellInfo.MinSize || size <= 0 {
		return 0, domain.ErrBelowMinSize
	}
	return size, nil
}

// await races a lifecycle response against the configured timeout.
func (o *Orchestrator) await(ctx context.Context, ch <-chan venue.Response) (venue.Response, error) {
	t := time.NewTimer(o.cfg.ResponseTimeout)
	defer t.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return venue.Response{}, domain.ErrResponseTimeout
		}
		return resp, nil
	case <-t.C:
		return venue.Response{}, domain.ErrResponseTimeout
	case <-ctx.Done():
		return venue.Response{}, ctx.Err()
	}
}

// ApplyQuoteAction dispatches one reconciliation decision. A key already in
// flight returns ErrInFlight; the caller simply retries next cycle.
func (o *Orchestrator) ApplyQuoteAction(ctx context.Context, act reconciler.Action) error {
	switch act.Type {
	case reconciler.ActionNone:
		return nil
	case reconciler.ActionTouch:
		o.quotes.Touch(act.Coin)
		return nil
	}

	key := "quote|" + act.Coin
	if !o.inflight.TryAcquire(key) {
		return domain.ErrInFlight
	}
	defer o.inflight.Release(key)

	maker, ok := o.venues[o.cfg.MakerVenue]
	if !ok {
		return domain.ErrMissingMarket
	}
	switch act.Type {
	case reconciler.ActionCreate:
		return o.createQuote(ctx, maker, act)
	case reconciler.ActionAmend:
		return o.amendQuote(ctx, maker, act)
	case reconciler.ActionCancel:
		return o.cancelQuote(ctx, maker, act)
	}
	return nil
}

func (o *Orchestrator) createQuote(ctx context.Context, maker venue.Client, act reconciler.Action) error {
	market, ok := maker.Markets()[act.Plan.Coin]
	if !ok {
		return domain.ErrMissingMarket
	}
	price, size := maker.FitSizes(act.Plan.Price, act.Plan.Size, market)
	spec := venue.OrderSpec{
		ClientID: uuid.NewString(),
		Market:   market,
		Side:     act.Plan.Side,
		Price:    price,
		Size:     size,
	}

	resp, err := o.await(ctx, maker.CreateOrder(ctx, spec))
	if err != nil {
		// The order may or may not exist on the venue. Drop tracking and
		// let the open-order sweep reclaim it.
		o.logger.Warn("create quote timed out",
			slog.String("coin", act.Plan.Coin),
			slog.String("client_id", spec.ClientID))
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderTimeout,
			Title:   "quote create timed out",
			Message: fmt.Sprintf("%s %s @ %g", act.Plan.Coin, act.Plan.Side, price),
		})
		return err
	}
	if resp.Status != venue.StatusSuccess {
		o.logger.Warn("create quote rejected",
			slog.String("coin", act.Plan.Coin),
			slog.String("reason", resp.Message))
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderRejected,
			Title:   "quote create rejected",
			Message: fmt.Sprintf("%s %s: %s", act.Plan.Coin, act.Plan.Side, resp.Message),
		})
		return nil
	}

	o.quotes.Set(domain.ActiveQuote{
		Coin:       act.Plan.Coin,
		Venue:      maker.Name(),
		Market:     market,
		OrderID:    resp.ExchangeOrderID,
		ClientID:   spec.ClientID,
		Side:       act.Plan.Side,
		Price:      price,
		Size:       size,
		Breakeven:  act.Plan.Breakeven,
		Direction:  act.Plan.Direction,
		HedgeVenue: act.Plan.HedgeVenue,
	})
	o.logger.Info("quote created",
		slog.String("coin", act.Plan.Coin),
		slog.String("side", string(act.Plan.Side)),
		slog.Float64("price", price),
		slog.Float64("size", size),
		slog.String("order_id", resp.ExchangeOrderID))
	return nil
}

func (o *Orchestrator) amendQuote(ctx context.Context, maker venue.Client, act reconciler.Action) error {
	prev, ok := o.quotes.Get(act.Coin)
	if !ok || prev.OrderID != act.OrderID {
		return domain.ErrNotFound
	}
	price, size := maker.FitSizes(act.Plan.Price, act.Plan.Size, prev.Market)
	spec := venue.OrderSpec{
		ClientID: prev.ClientID,
		Market:   prev.Market,
		Side:     prev.Side,
		Price:    price,
		Size:     size,
	}

	resp, err := o.await(ctx, maker.AmendOrder(ctx, act.OrderID, spec))
	if err != nil {
		// Unknown order state after an amend timeout. Cancel as fallback so
		// a stale price never rests.
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderTimeout,
			Title:   "quote amend timed out",
			Message: fmt.Sprintf("%s order %s", act.Coin, act.OrderID),
		})
		o.cancelByID(ctx, maker, act.OrderID, prev.Market)
		o.quotes.Clear(act.Coin)
		return err
	}
	if resp.Status != venue.StatusSuccess {
		o.cancelByID(ctx, maker, act.OrderID, prev.Market)
		o.quotes.Clear(act.Coin)
		return nil
	}

	orderID := act.OrderID
	if resp.ExchangeOrderID != "" && resp.ExchangeOrderID != act.OrderID {
		// Some venues re-key on amend. If the echoed id is unexpected the
		// tracked state can no longer be trusted: cancel and restart.
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderMismatch,
			Title:   "amend returned unexpected order id",
			Message: fmt.Sprintf("%s: had %s, got %s", act.Coin, act.OrderID, resp.ExchangeOrderID),
		})
		o.cancelByID(ctx, maker, resp.ExchangeOrderID, prev.Market)
		o.quotes.Clear(act.Coin)
		return nil
	}

	if _, still := o.quotes.Get(act.Coin); !still {
		// A maker fill hedged and cleared this quote while the amend was in
		// flight. The amended order no longer belongs on the book.
		o.cancelByID(ctx, maker, orderID, prev.Market)
		return nil
	}
	prev.OrderID = orderID
	prev.Price = price
	prev.Size = size
	prev.Breakeven = act.Plan.Breakeven
	prev.Direction = act.Plan.Direction
	prev.HedgeVenue = act.Plan.HedgeVenue
	o.quotes.Set(prev)
	o.logger.Info("quote amended",
		slog.String("coin", act.Coin),
		slog.Float64("price", price),
		slog.Float64("size", size))
	return nil
}

func (o *Orchestrator) cancelQuote(ctx context.Context, maker venue.Client, act reconciler.Action) error {
	prev, ok := o.quotes.Get(act.Coin)
	if !ok {
		return nil
	}
	resp, err := o.await(ctx, maker.CancelOrder(ctx, act.OrderID, prev.Market))
	// Tracking is cleared on every outcome: a cancel that timed out is
	// assumed dead, and the sweep re-cancels it if it still rests.
	o.quotes.Clear(act.Coin)
	if err != nil {
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderTimeout,
			Title:   "quote cancel timed out",
			Message: fmt.Sprintf("%s order %s", act.Coin, act.OrderID),
		})
		return err
	}
	if resp.Status != venue.StatusSuccess {
		o.logger.Warn("cancel rejected, order likely already gone",
			slog.String("coin", act.Coin),
			slog.String("reason", resp.Message))
	}
	o.logger.Info("quote canceled",
		slog.String("coin", act.Coin),
		slog.String("order_id", act.OrderID),
		slog.String("reason", act.Reason))
	return nil
}

// cancelByID fires a best-effort cancel without touching quote tracking.
func (o *Orchestrator) cancelByID(ctx context.Context, v venue.Client, orderID, market string) {
	if _, err := o.await(ctx, v.CancelOrder(ctx, orderID, market)); err != nil {
		o.logger.Warn("fallback cancel timed out",
			slog.String("order_id", orderID))
	}
}

// ExecuteTakerArbitrage fires both taker legs of a candidate deal. At most
// one deal executes at a time process-wide; concurrent candidates return
// ErrInFlight and are simply dropped.
func (o *Orchestrator) ExecuteTakerArbitrage(ctx context.Context, deal domain.CandidateDeal) (domain.DealReport, error) {
	if !o.dealGate.CompareAndSwap(false, true) {
		return domain.DealReport{}, domain.ErrInFlight
	}
	defer o.dealGate.Store(false)

	key := deal.BuyVenue + "|" + deal.SellVenue + "|" + deal.Coin
	if !o.inflight.TryAcquire(key) {
		return domain.DealReport{}, domain.ErrInFlight
	}
	defer o.inflight.Release(key)

	if deal.Direction != domain.DirectionOpen {
		o.setCloseActive(true)
		defer o.setCloseActive(false)
	}

	maxUSD, ok := o.Admission(deal.BuyVenue, deal.SellVenue, deal.BuyMarket, deal.SellMarket, deal.BuyPrice, deal.SellPrice)
	if !ok {
		return domain.DealReport{}, domain.ErrBalanceUpdating
	}

	// Haircut applies after the depth clamp so the order never takes the
	// whole visible level, whichever constraint binds.
	depthUSD := math.Min(deal.BuySize*deal.BuyPrice, deal.SellSize*deal.SellPrice)
	sizeUSD := math.Min(maxUSD, depthUSD) * (1 - o.cfg.Haircut)
	sizeCoin, err := o.SizeAndRound(deal.BuyVenue, deal.SellVenue, deal.BuyMarket, deal.SellMarket, sizeUSD, deal.BuyPrice)
	if err != nil {
		return domain.DealReport{}, err
	}

	bv := o.venues[deal.BuyVenue]
	sv := o.venues[deal.SellVenue]
	buyPx, buySize := bv.FitSizes(deal.BuyPrice*(1+o.cfg.Slippage), sizeCoin, deal.BuyMarket)
	sellPx, sellSize := sv.FitSizes(deal.SellPrice*(1-o.cfg.Slippage), sizeCoin, deal.SellMarket)

	sentAt := o.now().UTC()
	var wg sync.WaitGroup
	var buyLeg, sellLeg domain.LegResult
	wg.Add(2)
	go func() {
		defer wg.Done()
		buyLeg = o.fireLeg(ctx, bv, deal.BuyMarket, domain.SideBuy, deal.BuyPrice, buyPx, buySize)
	}()
	go func() {
		defer wg.Done()
		sellLeg = o.fireLeg(ctx, sv, deal.SellMarket, domain.SideSell, deal.SellPrice, sellPx, sellSize)
	}()
	wg.Wait()

	fees := o.takerFees(deal)
	report := domain.DealReport{
		ID:           uuid.NewString(),
		Coin:         deal.Coin,
		Direction:    deal.Direction,
		Buy:          buyLeg,
		Sell:         sellLeg,
		SizeUSD:      sizeCoin * buyPx,
		TargetProfit: deal.TargetProfit,
		ProfitTarget: deal.Profit,
		Status:       legStatus(buyLeg, sellLeg),
		TriggerVenue: deal.TriggerVenue,
		TriggerType:  deal.TriggerType,
		CountedAt:    deal.StartedAt,
		SentAt:       sentAt,
		SettledAt:    o.now().UTC(),
	}
	if buyLeg.RealPrice > 0 && sellLeg.RealPrice > 0 {
		report.ProfitReal = (sellLeg.RealPrice-buyLeg.RealPrice)/buyLeg.RealPrice - fees
	}

	o.settle(ctx, bv, sv)

	if err := o.store.SaveDeal(ctx, report); err != nil {
		o.logger.Error("save deal failed", slog.String("error", err.Error()))
	}
	if err := o.sink.PublishDeal(ctx, report); err != nil {
		o.logger.Error("publish deal failed", slog.String("error", err.Error()))
	}
	o.logger.Info("deal executed",
		slog.String("coin", deal.Coin),
		slog.String("status", string(report.Status)),
		slog.Float64("size_usd", report.SizeUSD),
		slog.Float64("profit_target", report.ProfitTarget),
		slog.Float64("profit_real", report.ProfitReal))
	return report, nil
}

// fireLeg places one taker leg and resolves its result.
func (o *Orchestrator) fireLeg(ctx context.Context, v venue.Client, market string, side domain.Side, targetPx, fittedPx, size float64) domain.LegResult {
	leg := domain.LegResult{
		Venue:       v.Name(),
		Market:      market,
		Side:        side,
		ClientID:    uuid.NewString(),
		TargetPrice: targetPx,
		FittedPrice: fittedPx,
		TargetSize:  size,
	}
	start := o.now()
	resp, err := o.await(ctx, v.CreateOrder(ctx, venue.OrderSpec{
		ClientID: leg.ClientID,
		Market:   market,
		Side:     side,
		Price:    fittedPx,
		Size:     size,
	}))
	leg.PlaceLatency = o.now().Sub(start)
	if err != nil {
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertOrderTimeout,
			Title:   "taker leg timed out",
			Message: fmt.Sprintf("%s %s %s", v.Name(), market, side),
		})
		return leg
	}
	leg.Placed = resp.Status == venue.StatusSuccess
	leg.ExchangeOrderID = resp.ExchangeOrderID
	leg.RealPrice = resp.FilledPrice
	leg.RealSize = resp.FilledSize
	if !leg.Placed {
		o.logger.Warn("taker leg rejected",
			slog.String("venue", v.Name()),
			slog.String("market", market),
			slog.String("reason", resp.Message))
	}
	return leg
}

// legStatus classifies both leg outcomes into a deal status. A leg that
// never answered leaves the deal undefined until balances reconcile.
func legStatus(buy, sell domain.LegResult) domain.DealStatus {
	buyAnswered := buy.Placed || buy.ExchangeOrderID != "" || buy.RealSize > 0
	sellAnswered := sell.Placed || sell.ExchangeOrderID != "" || sell.RealSize > 0
	switch {
	case buy.Placed && sell.Placed:
		return domain.DealStatusSuccess
	case !buyAnswered || !sellAnswered:
		return domain.DealStatusUndefined
	case !buy.Placed && !sell.Placed:
		return domain.DealStatusFullFail
	default:
		return domain.DealStatusDisbalance
	}
}

// settle starts the post-deal pause and kicks balance refreshes so admission
// stays closed until both venues report settled funds.
func (o *Orchestrator) settle(ctx context.Context, venues ...venue.Client) {
	o.mu.Lock()
	o.pausedUntil = o.now().Add(o.cfg.SettlementPause)
	o.mu.Unlock()
	for _, v := range venues {
		if err := v.RefreshBalances(ctx); err != nil {
			o.logger.Warn("balance refresh failed",
				slog.String("venue", v.Name()),
				slog.String("error", err.Error()))
		}
	}
}

func (o *Orchestrator) setCloseActive(v bool) {
	o.mu.Lock()
	o.closeActive = v
	o.mu.Unlock()
}

func (o *Orchestrator) takerFees(deal domain.CandidateDeal) float64 {
	var fees float64
	if v, ok := o.venues[deal.BuyVenue]; ok {
		if info, ok := v.Instrument(deal.BuyMarket); ok {
			fees += info.TakerFee
		}
	}
	if v, ok := o.venues[deal.SellVenue]; ok {
		if info, ok := v.Instrument(deal.SellMarket); ok {
			fees += info.TakerFee
		}
	}
	return fees
}

// HedgeMakerFill fires the opposite taker leg on the hedge venue after a
// resting maker quote filled, and shrinks or retires the tracked quote.
func (o *Orchestrator) HedgeMakerFill(ctx context.Context, fill domain.FillEvent) (domain.HedgeReport, error) {
	q, ok := o.quotes.ByOrderID(fill.OrderID)
	if !ok {
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertUntrackedOrder,
			Title:   "fill on untracked order",
			Message: fmt.Sprintf("%s order %s", fill.Coin, fill.OrderID),
		})
		return domain.HedgeReport{}, domain.ErrNotFound
	}

	key := "hedge|" + q.Coin
	if !o.inflight.TryAcquire(key) {
		return domain.HedgeReport{}, domain.ErrInFlight
	}
	defer o.inflight.Release(key)

	if remaining := q.Size - fill.Size; remaining > 0 {
		q.Size = remaining
		o.quotes.Set(q)
	} else {
		o.quotes.Clear(q.Coin)
	}

	hv, ok := o.venues[q.HedgeVenue]
	if !ok {
		return domain.HedgeReport{}, domain.ErrMissingMarket
	}
	market, ok := hv.Markets()[fill.Coin]
	if !ok {
		return domain.HedgeReport{}, domain.ErrMissingMarket
	}

	side := fill.Side.Opposite()
	price := fill.Price
	if book, ok := hv.OrderBook(market); ok && book.Valid() {
		if side == domain.SideBuy {
			price = book.BestAsk().Price * (1 + o.cfg.Slippage)
		} else {
			price = book.BestBid().Price * (1 - o.cfg.Slippage)
		}
	}
	fittedPx, fittedSize := hv.FitSizes(price, fill.Size, market)
	leg := o.fireLeg(ctx, hv, market, side, price, fittedPx, fittedSize)

	report := domain.HedgeReport{
		ID:         uuid.NewString(),
		Coin:       fill.Coin,
		Fill:       fill,
		Hedge:      leg,
		Disbalance: fill.Size - leg.RealSize,
		SettledAt:  o.now().UTC(),
	}
	if leg.RealPrice > 0 {
		fees := 0.0
		if info, ok := hv.Instrument(market); ok {
			fees = info.TakerFee
		}
		if fill.Side == domain.SideBuy {
			report.ProfitReal = (leg.RealPrice-fill.Price)/fill.Price - fees
		} else {
			report.ProfitReal = (fill.Price-leg.RealPrice)/leg.RealPrice - fees
		}
	}

	o.settle(ctx, hv)

	if err := o.store.SaveHedge(ctx, report); err != nil {
		o.logger.Error("save hedge failed", slog.String("error", err.Error()))
	}
	if err := o.sink.PublishHedge(ctx, report); err != nil {
		o.logger.Error("publish hedge failed", slog.String("error", err.Error()))
	}
	o.logger.Info("maker fill hedged",
		slog.String("coin", fill.Coin),
		slog.String("hedge_venue", q.HedgeVenue),
		slog.Float64("size", fill.Size),
		slog.Float64("disbalance", report.Disbalance))
	return report, nil
}

// ReconcileOpenOrders sweeps the maker venue's live orders against tracked
// quotes: untracked live orders are canceled, tracked quotes with no live
// order are dropped. In-flight keys are skipped so the sweep never races a
// pending operation.
func (o *Orchestrator) ReconcileOpenOrders(ctx context.Context) error {
	maker, ok := o.venues[o.cfg.MakerVenue]
	if !ok {
		return domain.ErrMissingMarket
	}
	markets := make([]string, 0, len(maker.Markets()))
	for _, m := range maker.Markets() {
		markets = append(markets, m)
	}
	orders, err := maker.OpenOrders(ctx, markets)
	if err != nil {
		return err
	}

	live := make(map[string]venue.OpenOrder, len(orders))
	for _, ord := range orders {
		live[ord.ExchangeOrderID] = ord
	}

	for _, q := range o.quotes.All() {
		if o.inflight.Held("quote|" + q.Coin) {
			continue
		}
		if _, found := live[q.OrderID]; !found {
			o.logger.Warn("tracked quote has no live order, dropping",
				slog.String("coin", q.Coin),
				slog.String("order_id", q.OrderID))
			o.Alert(ctx, domain.Alert{
				Event:   domain.AlertOrderMismatch,
				Title:   "tracked quote missing on venue",
				Message: fmt.Sprintf("%s order %s", q.Coin, q.OrderID),
			})
			o.quotes.Clear(q.Coin)
		}
	}

	for id, ord := range live {
		if _, tracked := o.quotes.ByOrderID(id); tracked {
			continue
		}
		o.logger.Warn("untracked live order, canceling",
			slog.String("market", ord.Market),
			slog.String("order_id", id))
		o.Alert(ctx, domain.Alert{
			Event:   domain.AlertUntrackedOrder,
			Title:   "untracked live order",
			Message: fmt.Sprintf("%s order %s", ord.Market, id),
		})
		o.cancelByID(ctx, maker, id, ord.Market)
	}
	return nil
}
