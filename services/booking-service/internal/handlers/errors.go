package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// writeStoreError maps the model error categories onto HTTP statuses. Anything
// unrecognized is logged and hidden behind a generic 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, status, op+" failed")
		return
	}
	httpx.WriteError(w, status, err.Error())
}
