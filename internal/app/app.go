// Package app wires the engine's collaborators together and runs the scan
// loop: venue connectors feed triggers, the scanner and reconciler evaluate
// them, and the orchestrator executes the resulting decisions.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avelsh/crossarb/internal/config"
	"github.com/avelsh/crossarb/internal/orchestrator"
	"github.com/avelsh/crossarb/internal/reconciler"
	"github.com/avelsh/crossarb/internal/scanner"
	"github.com/avelsh/crossarb/internal/server"
	"github.com/avelsh/crossarb/internal/server/handler"
	"github.com/avelsh/crossarb/internal/threshold"
	"github.com/avelsh/crossarb/internal/venue"
)

// tradingLeaseTTL bounds how long a crashed instance blocks a replacement.
const tradingLeaseTTL = 30 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the
// connector sessions and engine goroutines, and blocks until the context is
// cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.Any("coins", a.cfg.Coins),
		slog.Int("venues", len(a.cfg.Venues)),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Take the trading lease so a second instance against the same venues
	// cannot quote or execute concurrently.
	lease, err := deps.Locks.Acquire(ctx, "engine", tradingLeaseTTL)
	if err != nil {
		return fmt.Errorf("app: trading lease: %w", err)
	}
	defer lease.Release()

	// The engine reads venues through the narrow Client surface.
	clients := make(map[string]venue.Client, len(deps.Venues))
	for name, conn := range deps.Venues {
		clients[name] = conn
	}

	fees := make(map[string]float64, len(a.cfg.Venues))
	for name, vc := range a.cfg.Venues {
		fees[name] = vc.TakerFee
	}

	tracker := threshold.New(fees, threshold.Config{
		Precision:       a.cfg.Threshold.Precision,
		Window:          a.cfg.Threshold.Window.Duration,
		CheckpointEvery: a.cfg.Threshold.CheckpointEvery.Duration,
		BalanceFloor:    a.cfg.Threshold.BalanceFloor,
	}, deps.Histograms, a.logger)
	if err := tracker.Restore(ctx); err != nil {
		a.logger.WarnContext(ctx, "threshold checkpoint restore failed, starting cold",
			slog.String("error", err.Error()),
		)
	}

	resolver := threshold.Resolver{
		ProfitOpen:  a.cfg.Threshold.ProfitOpen,
		ProfitClose: a.cfg.Threshold.ProfitClose,
		Learned:     tracker,
	}

	orch := orchestrator.New(clients, deps.DealStore, deps.Sink, orchestrator.Config{
		MakerVenue:      a.cfg.Scanner.MakerVenue,
		ResponseTimeout: a.cfg.Execution.ResponseTimeout.Duration,
		Haircut:         a.cfg.Execution.Haircut,
		Slippage:        a.cfg.Execution.Slippage,
		MinDealUSD:      a.cfg.Execution.MinDealUSD,
		MaxDealUSD:      a.cfg.Execution.MaxDealUSD,
		SettlementPause: a.cfg.Execution.SettlementPause.Duration,
	}, a.logger)

	scn := scanner.New(clients, resolver, tracker, orch, orch, scanner.Config{
		MaxBookAge: a.cfg.Scanner.MaxBookAge.Duration,
		MaxBookLag: a.cfg.Scanner.MaxBookLag.Duration,
		MakerVenue: a.cfg.Scanner.MakerVenue,
	}, a.logger)

	var rec *reconciler.Reconciler
	if a.cfg.Quoting.Enabled {
		rec = reconciler.New(clients, orch, resolver, orch, orch, reconciler.Config{
			MakerVenue:  a.cfg.Scanner.MakerVenue,
			Depth:       a.cfg.Quoting.Depth,
			Aggregation: reconciler.Aggregation(a.cfg.Quoting.Aggregation),
			MinOrderUSD: a.cfg.Quoting.MinOrderUSD,
		}, a.logger)
	}

	g, ctx := errgroup.WithContext(ctx)

	// A lost lease means another process may be trading; stop everything.
	g.Go(func() error {
		return lease.KeepAlive(ctx)
	})

	// Connector sessions.
	for name, conn := range deps.Venues {
		g.Go(func() error {
			if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("venue %s session: %w", name, err)
			}
			return nil
		})
	}

	eng := &engine{
		cfg:      a.cfg,
		venues:   deps.Venues,
		scanner:  scn,
		rec:      rec,
		orch:     orch,
		archiver: deps.DealArchiver,
		logger:   a.logger,
	}
	eng.start(ctx, g)

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, orch, tracker)
	}

	// Persist the histogram on the way out so a restart resumes warm.
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracker.Checkpoint(shutCtx)
	}()

	return g.Wait()
}

// startServer registers the ops HTTP server and WebSocket hub goroutines.
func (a *App) startServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	orch *orchestrator.Orchestrator,
	tracker *threshold.Tracker,
) {
	var archive handler.ArchiveReader
	if deps.Archive != nil {
		archive = deps.Archive
	}
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(),
		Status:  handler.NewStatusHandler(orch, tracker, a.logger),
		Reports: handler.NewReportsHandler(deps.DealStore, archive, a.logger),
	}
	srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, deps.Hub, a.logger)

	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down engine")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
