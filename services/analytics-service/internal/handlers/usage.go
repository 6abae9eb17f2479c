package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/analytics-service/internal/usage"
)

// DailyReader returns per-room aggregates for one day.
type DailyReader interface {
	Daily(ctx context.Context, date string) ([]usage.RoomUsage, error)
}

type UsageHandler struct {
	reader        DailyReader
	rooms         []string
	windowMinutes int
	logger        *slog.Logger
}

func NewUsageHandler(reader DailyReader, rooms []string, windowMinutes int, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{reader: reader, rooms: rooms, windowMinutes: windowMinutes, logger: logger}
}

// Daily serves GET /api/v1/usage?date=YYYY-MM-DD.
func (h *UsageHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ctx, span := otelx.StartSpan(r.Context(), "analytics-service/handlers", "usage.daily", "date", date)
	defer span.End()

	rows, err := h.reader.Daily(ctx, date)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("usage query failed", "err", err, "date", date)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, usage.Summarize(date, h.rooms, h.windowMinutes, rows))
}

func Register(mux *http.ServeMux, h *UsageHandler) {
	mux.HandleFunc("/api/v1/usage", h.Daily)
}
