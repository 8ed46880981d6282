// Package scanner evaluates taker arbitrage opportunities across venue pairs
// for one instrument at a time, triggered by connector book updates.
package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/threshold"
	"github.com/avelsh/crossarb/internal/venue"
)

// QuoteReader exposes the resting maker quote per instrument. Implemented by
// the orchestrator; the scanner only reads.
type QuoteReader interface {
	Quote(coin string) (domain.ActiveQuote, bool)
}

// CloseGate reports whether a position-closing deal is currently being
// worked. While one is, freshness checks are relaxed: keeping an exposed
// hedge open is worse than acting on slightly stale books.
type CloseGate interface {
	CloseDealActive() bool
}

// Observer receives every evaluated raw profit for histogram accumulation.
// *threshold.Tracker implements it.
type Observer interface {
	Observe(ctx context.Context, key threshold.Key, rawProfit float64)
}

// Config holds the scanner's static trigger levels and freshness bounds.
type Config struct {
	// MaxBookAge bounds how old a book's local receipt may be.
	MaxBookAge time.Duration
	// MaxBookLag bounds the exchange-to-local transport delay.
	MaxBookLag time.Duration
	// MakerVenue, when set, enables the maker-quote guard: pairs whose
	// trigger side matches the resting quote's side are skipped so the
	// fill-and-hedge path owns that flow.
	MakerVenue string
}

// Scanner evaluates, per trigger, every ordered pair of distinct venues
// holding the instrument and emits a CandidateDeal for each pair whose
// fee-adjusted profit clears the resolved target.
type Scanner struct {
	venues   map[string]venue.Client
	resolver threshold.Resolver
	observer Observer    // optional
	quotes   QuoteReader // optional, maker-quote guard
	gate     CloseGate   // optional
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scanner. observer, quotes and gate may be nil.
func New(
	venues map[string]venue.Client,
	resolver threshold.Resolver,
	observer Observer,
	quotes QuoteReader,
	gate CloseGate,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		venues:   venues,
		resolver: resolver,
		observer: observer,
		quotes:   quotes,
		gate:     gate,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
	}
}

// Evaluate runs one scan cycle for the trigger's instrument. Every venue pair
// is evaluated independently; all qualifying candidates are returned and the
// orchestrator's gates decide which execute. Data-unavailability conditions
// (missing books, stale books, missing markets) silently skip the pair.
func (s *Scanner) Evaluate(ctx context.Context, trig venue.Trigger) []domain.CandidateDeal {
	trigClient, ok := s.venues[trig.Venue]
	if !ok {
		return nil
	}

	now := time.Now().UTC()
	var deals []domain.CandidateDeal

	for name, other := range s.venues {
		if name == trig.Venue {
			continue
		}

		var buyClient, sellClient venue.Client
		if trig.Side == domain.SideBuy {
			buyClient, sellClient = trigClient, other
		} else {
			buyClient, sellClient = other, trigClient
		}

		if s.quoteGuarded(trig) {
			continue
		}

		deal, ok := s.evaluatePair(ctx, trig, buyClient, sellClient, now)
		if !ok {
			continue
		}
		deals = append(deals, deal)
	}
	return deals
}

// quoteGuarded reports whether the maker-quote guard suppresses this pair.
func (s *Scanner) quoteGuarded(trig venue.Trigger) bool {
	if s.cfg.MakerVenue == "" || s.quotes == nil {
		return false
	}
	quote, ok := s.quotes.Quote(trig.Coin)
	return ok && quote.Side == trig.Side
}

func (s *Scanner) evaluatePair(
	ctx context.Context,
	trig venue.Trigger,
	buyClient, sellClient venue.Client,
	now time.Time,
) (domain.CandidateDeal, bool) {
	buyMarket, ok := buyClient.Markets()[trig.Coin]
	if !ok {
		return domain.CandidateDeal{}, false
	}
	sellMarket, ok := sellClient.Markets()[trig.Coin]
	if !ok {
		return domain.CandidateDeal{}, false
	}

	buyBook, ok := buyClient.OrderBook(buyMarket)
	if !ok || !buyBook.Valid() {
		return domain.CandidateDeal{}, false
	}
	sellBook, ok := sellClient.OrderBook(sellMarket)
	if !ok || !sellBook.Valid() {
		return domain.CandidateDeal{}, false
	}

	if !s.fresh(buyBook, sellBook, now) {
		return domain.CandidateDeal{}, false
	}

	buyPos := buyClient.Positions()[buyMarket]
	sellPos := sellClient.Positions()[sellMarket]
	direction := domain.Classify(buyPos, sellPos)

	buyInfo, ok := buyClient.Instrument(buyMarket)
	if !ok {
		return domain.CandidateDeal{}, false
	}
	sellInfo, ok := sellClient.Instrument(sellMarket)
	if !ok {
		return domain.CandidateDeal{}, false
	}

	buyTop := buyBook.BestAsk()
	sellTop := sellBook.BestBid()
	rawProfit := (sellTop.Price - buyTop.Price) / buyTop.Price
	profit := rawProfit - buyInfo.TakerFee - sellInfo.TakerFee

	key := threshold.Key{BuyVenue: buyClient.Name(), SellVenue: sellClient.Name(), Coin: trig.Coin}
	if s.observer != nil {
		s.observer.Observe(ctx, key, rawProfit)
	}
	target, tradable := s.resolver.Resolve(key, direction)
	if !tradable || profit < target {
		return domain.CandidateDeal{}, false
	}

	deal := domain.CandidateDeal{
		Coin:         trig.Coin,
		BuyVenue:     buyClient.Name(),
		SellVenue:    sellClient.Name(),
		BuyMarket:    buyMarket,
		SellMarket:   sellMarket,
		BuyPrice:     buyTop.Price,
		SellPrice:    sellTop.Price,
		BuySize:      buyTop.Size,
		SellSize:     sellTop.Size,
		RawProfit:    rawProfit,
		Profit:       profit,
		TargetProfit: target,
		Direction:    direction,
		TriggerVenue: trig.Venue,
		TriggerType:  trig.Type,
		StartedAt:    now,
		BuyBookTS:    buyBook.ExchangeTS,
		SellBookTS:   sellBook.ExchangeTS,
		BuyBookLag:   buyBook.Lag(),
		SellBookLag:  sellBook.Lag(),
	}
	s.logger.Debug("candidate deal",
		slog.String("coin", deal.Coin),
		slog.String("buy_venue", deal.BuyVenue),
		slog.String("sell_venue", deal.SellVenue),
		slog.Float64("profit", deal.Profit),
		slog.Float64("target", deal.TargetProfit),
		slog.String("direction", string(deal.Direction)),
	)
	return deal, true
}

// fresh applies the book age and transport lag bounds, relaxed while a
// close deal is active.
func (s *Scanner) fresh(buyBook, sellBook domain.OrderBook, now time.Time) bool {
	if s.gate != nil && s.gate.CloseDealActive() {
		return true
	}
	if s.cfg.MaxBookAge > 0 {
		if buyBook.Age(now) > s.cfg.MaxBookAge || sellBook.Age(now) > s.cfg.MaxBookAge {
			return false
		}
	}
	if s.cfg.MaxBookLag > 0 {
		if buyBook.Lag() > s.cfg.MaxBookLag || sellBook.Lag() > s.cfg.MaxBookLag {
			return false
		}
	}
	return true
}
