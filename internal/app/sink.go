package app

import (
	"context"
	"errors"

	"github.com/avelsh/crossarb/internal/domain"
)

// multiSink fans every report out to all configured sinks. A failing sink
// never suppresses delivery to the others.
type multiSink []domain.ReportSink

func (m multiSink) PublishDeal(ctx context.Context, r domain.DealReport) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishDeal(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiSink) PublishHedge(ctx context.Context, r domain.HedgeReport) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishHedge(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiSink) PublishAlert(ctx context.Context, a domain.Alert) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.PublishAlert(ctx, a))
	}
	return errors.Join(errs...)
}
