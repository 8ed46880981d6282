package domain

import "context"

// DealStore persists deal and hedge reports. The engine treats persistence as
// a collaborator: a store failure is logged, never propagated into the scan
// loop.
type DealStore interface {
	SaveDeal(ctx context.Context, r DealReport) error
	SaveHedge(ctx context.Context, r HedgeReport) error
	RecentDeals(ctx context.Context, limit int) ([]DealReport, error)
}

// ReportSink delivers reports and alerts to the outbound transport
// (message bus, websocket hub, console).
type ReportSink interface {
	PublishDeal(ctx context.Context, r DealReport) error
	PublishHedge(ctx context.Context, r HedgeReport) error
	PublishAlert(ctx context.Context, a Alert) error
}

// HistogramStore checkpoints adaptive-threshold histograms between process
// restarts and archives rolled-over windows.
type HistogramStore interface {
	Save(ctx context.Context, snapshot []byte) error
	Load(ctx context.Context) ([]byte, error)
	Archive(ctx context.Context, date string, snapshot []byte) error
}
