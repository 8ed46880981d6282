package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/avelsh/crossarb/internal/domain"
)

// ArchiveReader fetches archived objects, e.g. rolled-over threshold
// windows.
type ArchiveReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}

// ReportsHandler serves persisted deal history and archived threshold
// windows.
type ReportsHandler struct {
	deals   domain.DealStore
	archive ArchiveReader // nil when no archive backend is configured
	logger  *slog.Logger
}

// NewReportsHandler creates a ReportsHandler. archive may be nil.
func NewReportsHandler(deals domain.DealStore, archive ArchiveReader, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{deals: deals, archive: archive, logger: logger}
}

// ListDeals responds with the most recent deal reports.
// GET /api/deals?limit=N
func (h *ReportsHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.deals.RecentDeals(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list deals failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list deals")
		return
	}
	if deals == nil {
		deals = []domain.DealReport{}
	}
	writeJSON(w, http.StatusOK, deals)
}

// GetThresholdArchive streams one archived threshold window.
// GET /api/thresholds/archive/{date}
func (h *ReportsHandler) GetThresholdArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "no archive backend configured")
		return
	}
	date := r.PathValue("date")
	body, err := h.archive.Get(r.Context(), "archive/thresholds/"+date+".json")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		h.logger.Error("get threshold archive failed",
			slog.String("date", date),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
