package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
	"github.com/avelsh/crossarb/internal/threshold"
)

// QuoteSource exposes the currently tracked maker quotes.
type QuoteSource interface {
	ActiveQuotes() []domain.ActiveQuote
}

// ThresholdSource exposes the currently learned profit targets.
type ThresholdSource interface {
	TargetProfits() map[threshold.Key]float64
}

// StatusHandler serves a snapshot of the engine's live state: resting
// quotes and learned thresholds.
type StatusHandler struct {
	quotes     QuoteSource
	thresholds ThresholdSource
	startedAt  time.Time
	logger     *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(quotes QuoteSource, thresholds ThresholdSource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		quotes:     quotes,
		thresholds: thresholds,
		startedAt:  time.Now().UTC(),
		logger:     logger,
	}
}

// Status responds with the live engine snapshot.
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	targets := make(map[string]float64)
	for k, v := range h.thresholds.TargetProfits() {
		targets[k.String()] = v
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"quotes":         h.quotes.ActiveQuotes(),
		"thresholds":     targets,
	})
}
