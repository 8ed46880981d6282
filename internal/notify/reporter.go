package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/avelsh/crossarb/internal/domain"
)

// Reporter adapts the Notifier to domain.ReportSink: deal and hedge reports
// are rendered as leg tables, alerts pass through as plain messages.
type Reporter struct {
	notifier *Notifier
}

// NewReporter creates a Reporter around notifier.
func NewReporter(notifier *Notifier) *Reporter {
	return &Reporter{notifier: notifier}
}

// PublishDeal renders and sends a completed deal.
func (r *Reporter) PublishDeal(ctx context.Context, rep domain.DealReport) error {
	title := fmt.Sprintf("deal %s %s [%s]", rep.Coin, rep.Direction, rep.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "size $%.2f  target %.4f%%  real %.4f%%\n",
		rep.SizeUSD, rep.ProfitTarget*100, rep.ProfitReal*100)

	table := tablewriter.NewWriter(&sb)
	table.Header("Leg", "Venue", "Target", "Real", "Size", "Placed", "Latency")
	for _, leg := range []domain.LegResult{rep.Buy, rep.Sell} {
		table.Append(
			string(leg.Side),
			leg.Venue,
			fmt.Sprintf("%g", leg.TargetPrice),
			fmt.Sprintf("%g", leg.RealPrice),
			fmt.Sprintf("%g", leg.RealSize),
			fmt.Sprintf("%t", leg.Placed),
			leg.PlaceLatency.String(),
		)
	}
	table.Render()

	return r.notifier.Notify(ctx, "deal", title, sb.String())
}

// PublishHedge renders and sends a hedge result.
func (r *Reporter) PublishHedge(ctx context.Context, rep domain.HedgeReport) error {
	title := fmt.Sprintf("hedge %s on %s", rep.Coin, rep.Hedge.Venue)

	var sb strings.Builder
	fmt.Fprintf(&sb, "fill %s %g @ %g on %s\n",
		rep.Fill.Side, rep.Fill.Size, rep.Fill.Price, rep.Fill.Venue)

	table := tablewriter.NewWriter(&sb)
	table.Header("Side", "Venue", "Price", "Size", "Placed")
	table.Append(
		string(rep.Hedge.Side),
		rep.Hedge.Venue,
		fmt.Sprintf("%g", rep.Hedge.RealPrice),
		fmt.Sprintf("%g", rep.Hedge.RealSize),
		fmt.Sprintf("%t", rep.Hedge.Placed),
	)
	table.Render()

	if rep.Disbalance != 0 {
		fmt.Fprintf(&sb, "disbalance: %g %s unhedged\n", rep.Disbalance, rep.Coin)
	}
	return r.notifier.Notify(ctx, "hedge", title, sb.String())
}

// PublishAlert forwards an anomaly under its own event name, so operators
// can subscribe to, say, order timeouts without the full deal stream.
func (r *Reporter) PublishAlert(ctx context.Context, a domain.Alert) error {
	return r.notifier.Notify(ctx, a.Event, fmt.Sprintf("[%s] %s", a.Event, a.Title), a.Message)
}

// Compile-time interface check.
var _ domain.ReportSink = (*Reporter)(nil)
