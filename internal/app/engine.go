package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	s3blob "github.com/avelsh/crossarb/internal/blob/s3"
	"github.com/avelsh/crossarb/internal/config"
	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/orchestrator"
	"github.com/avelsh/crossarb/internal/reconciler"
	"github.com/avelsh/crossarb/internal/scanner"
	"github.com/avelsh/crossarb/internal/venue"
)

// dealArchiveLimit caps how many deal rows one end-of-day archive upload
// carries.
const dealArchiveLimit = 10000

// engine drives the decision loop: connector triggers in, scanner and
// reconciler evaluations out, execution through the orchestrator.
type engine struct {
	cfg      *config.Config
	venues   map[string]venue.Connector
	scanner  *scanner.Scanner
	rec      *reconciler.Reconciler // nil when quoting is disabled
	orch     *orchestrator.Orchestrator
	archiver *s3blob.DealArchiver // nil when S3 is disabled
	logger   *slog.Logger
}

// start registers the engine goroutines on the errgroup: the trigger loop,
// the fill loop, and the periodic maintenance tickers.
func (e *engine) start(ctx context.Context, g *errgroup.Group) {
	triggers := make(chan venue.Trigger, 256)
	fills := make(chan domain.FillEvent, 64)
	for _, conn := range e.venues {
		g.Go(func() error {
			return forward(ctx, conn.Triggers(), triggers)
		})
		g.Go(func() error {
			return forward(ctx, conn.Fills(), fills)
		})
	}

	g.Go(func() error {
		return e.triggerLoop(ctx, triggers)
	})
	g.Go(func() error {
		return e.fillLoop(ctx, fills)
	})
	g.Go(func() error {
		return e.balanceLoop(ctx)
	})
	g.Go(func() error {
		return e.sweepLoop(ctx)
	})
	if e.archiver != nil {
		g.Go(func() error {
			return e.archiveLoop(ctx)
		})
	}
}

// forward drains src into dst until the context is cancelled or src closes.
// A full dst drops the event; triggers are refreshed by the next book update
// so losing one under burst is harmless.
func forward[T any](ctx context.Context, src <-chan T, dst chan<- T) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-src:
			if !ok {
				return nil
			}
			select {
			case dst <- ev:
			default:
			}
		}
	}
}

// triggerLoop is the engine's main loop: one scan plus one quote
// reconciliation per admitted trigger, throttled per instrument.
func (e *engine) triggerLoop(ctx context.Context, triggers <-chan venue.Trigger) error {
	limiters := make(map[string]*rate.Limiter, len(e.cfg.Coins))
	perSec := e.cfg.Scanner.TriggersPerSec
	if perSec <= 0 {
		perSec = 20
	}
	for _, coin := range e.cfg.Coins {
		limiters[coin] = rate.NewLimiter(rate.Limit(perSec), 1)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case trig := <-triggers:
			lim, ok := limiters[trig.Coin]
			if !ok || !lim.Allow() {
				continue
			}
			e.cycle(ctx, trig)
		}
	}
}

// cycle runs one decision cycle for a trigger. Errors are contained here:
// nothing an individual cycle does may stop the loop.
func (e *engine) cycle(ctx context.Context, trig venue.Trigger) {
	for _, deal := range e.scanner.Evaluate(ctx, trig) {
		_, err := e.orch.ExecuteTakerArbitrage(ctx, deal)
		if err == nil {
			break
		}
		if expected(err) {
			continue
		}
		e.logger.WarnContext(ctx, "taker execution failed",
			slog.String("coin", deal.Coin),
			slog.String("buy_venue", deal.BuyVenue),
			slog.String("sell_venue", deal.SellVenue),
			slog.String("error", err.Error()),
		)
	}

	if e.rec == nil {
		return
	}
	act := e.rec.Evaluate(ctx, trig.Coin)
	if act.Type == reconciler.ActionNone {
		return
	}
	if err := e.orch.ApplyQuoteAction(ctx, act); err != nil && !expected(err) {
		e.logger.WarnContext(ctx, "quote action failed",
			slog.String("coin", act.Coin),
			slog.String("action", act.Type.String()),
			slog.String("error", err.Error()),
		)
	}
}

// expected reports whether an execution error is a routine gate outcome
// rather than a fault.
func expected(err error) bool {
	return errors.Is(err, domain.ErrInFlight) ||
		errors.Is(err, domain.ErrBalanceUpdating) ||
		errors.Is(err, domain.ErrBelowMinSize)
}

// fillLoop hedges maker fills as they arrive.
func (e *engine) fillLoop(ctx context.Context, fills <-chan domain.FillEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fill := <-fills:
			if _, err := e.orch.HedgeMakerFill(ctx, fill); err != nil && !expected(err) && !errors.Is(err, domain.ErrNotFound) {
				e.logger.ErrorContext(ctx, "maker fill hedge failed",
					slog.String("coin", fill.Coin),
					slog.String("order_id", fill.OrderID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// balanceLoop periodically asks every connector to re-pull balances and
// positions.
func (e *engine) balanceLoop(ctx context.Context) error {
	interval := e.cfg.Execution.BalanceRefresh.Duration
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, conn := range e.venues {
				if err := conn.RefreshBalances(ctx); err != nil {
					e.logger.WarnContext(ctx, "balance refresh failed",
						slog.String("venue", name),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
}

// sweepLoop periodically reconciles tracked quotes against the venues' live
// open orders.
func (e *engine) sweepLoop(ctx context.Context) error {
	interval := e.cfg.Execution.SweepInterval.Duration
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.orch.ReconcileOpenOrders(ctx); err != nil {
				e.logger.WarnContext(ctx, "open-order sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// archiveLoop uploads the previous day's deal reports to object storage once
// per day.
func (e *engine) archiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			day := time.Now().UTC().AddDate(0, 0, -1)
			n, err := e.archiver.ArchiveDeals(ctx, day, dealArchiveLimit)
			if err != nil {
				e.logger.WarnContext(ctx, "deal archive upload failed",
					slog.String("day", day.Format("2006-01-02")),
					slog.String("error", err.Error()),
				)
				continue
			}
			e.logger.InfoContext(ctx, "deal archive uploaded",
				slog.String("day", day.Format("2006-01-02")),
				slog.Int("deals", n),
			)
		}
	}
}
