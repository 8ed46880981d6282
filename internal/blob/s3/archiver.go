package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
)

// HistogramArchiver decorates a domain.HistogramStore so that rolled-over
// threshold windows are additionally uploaded to S3 under
// archive/thresholds/YYYY-MM-DD.json. Save and Load pass straight through to
// the inner store.
type HistogramArchiver struct {
	inner  domain.HistogramStore
	writer *Writer
}

// NewHistogramArchiver creates a HistogramArchiver around inner.
func NewHistogramArchiver(inner domain.HistogramStore, writer *Writer) *HistogramArchiver {
	return &HistogramArchiver{inner: inner, writer: writer}
}

// Save overwrites the live checkpoint in the inner store.
func (a *HistogramArchiver) Save(ctx context.Context, snapshot []byte) error {
	return a.inner.Save(ctx, snapshot)
}

// Load returns the live checkpoint from the inner store.
func (a *HistogramArchiver) Load(ctx context.Context) ([]byte, error) {
	return a.inner.Load(ctx)
}

// Archive uploads the rolled-over window to S3 and then archives it in the
// inner store as well.
func (a *HistogramArchiver) Archive(ctx context.Context, date string, snapshot []byte) error {
	path := "archive/thresholds/" + date + ".json"
	if err := a.writer.Put(ctx, path, bytes.NewReader(snapshot), "application/json"); err != nil {
		return err
	}
	return a.inner.Archive(ctx, date, snapshot)
}

// Compile-time interface check.
var _ domain.HistogramStore = (*HistogramArchiver)(nil)

// DealArchiveStore provides read access to deal history for archival
// purposes. The Postgres DealStore satisfies it through RecentDeals.
type DealArchiveStore interface {
	RecentDeals(ctx context.Context, limit int) ([]domain.DealReport, error)
}

// DealArchiver serializes recent deal reports to JSONL and uploads them to
// S3, partitioned by day.
type DealArchiver struct {
	store  DealArchiveStore
	writer *Writer
}

// NewDealArchiver creates a new DealArchiver.
func NewDealArchiver(store DealArchiveStore, writer *Writer) *DealArchiver {
	return &DealArchiver{store: store, writer: writer}
}

// ArchiveDeals uploads up to limit recent deals as a JSONL object at
// archive/deals/YYYY-MM-DD.jsonl and returns the number archived.
func (a *DealArchiver) ArchiveDeals(ctx context.Context, day time.Time, limit int) (int, error) {
	deals, err := a.store.RecentDeals(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive deals query: %w", err)
	}
	if len(deals) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(deals)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive deals marshal: %w", err)
	}

	path := fmt.Sprintf("archive/deals/%s.jsonl", day.Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive deals upload: %w", err)
	}
	return len(deals), nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
