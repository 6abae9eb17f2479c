package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/storage"
	"golang.org/x/sync/errgroup"
)

const tracerName = "booking-service/handlers"

// CalendarConfig is what clients need to draw the grid.
type CalendarConfig struct {
	grid.Config
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type BookingHandler struct {
	store  storage.Store
	config CalendarConfig
	logger *slog.Logger
}

func NewBookingHandler(store storage.Store, cfg CalendarConfig, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{store: store, config: cfg, logger: logger}
}

type dayResponse struct {
	Bookings   []model.Booking   `json:"bookings"`
	RoomBlocks []model.RoomBlock `json:"roomBlocks"`
}

type initResponse struct {
	Instructors []string `json:"instructors"`
	dayResponse
}

type createBookingResponse struct {
	Booking model.Booking `json:"booking"`
}

type updateBookingRequest struct {
	ID string `json:"id"`
	model.BookingInput
}

type deleteBookingRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type statusResponse struct {
	Success bool `json:"success"`
}

func (h *BookingHandler) Config(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.config)
}

// Init returns the roster and the requested day in one round trip.
func (h *BookingHandler) Init(w http.ResponseWriter, r *http.Request) {
	date, instructor, ok := dayQuery(w, r)
	if !ok {
		return
	}

	var resp initResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		names, err := h.store.Instructors(ctx)
		resp.Instructors = names
		return err
	})
	g.Go(func() error {
		snap, err := h.store.FetchDay(ctx, date, instructor)
		resp.Bookings, resp.RoomBlocks = snap.Bookings, snap.RoomBlocks
		return err
	})
	if err := g.Wait(); err != nil {
		writeStoreError(w, r, h.logger, "init", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Bookings serves the day snapshot on GET and creates a booking on POST.
func (h *BookingHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.fetchDay(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *BookingHandler) fetchDay(w http.ResponseWriter, r *http.Request) {
	date, instructor, ok := dayQuery(w, r)
	if !ok {
		return
	}
	snap, err := h.store.FetchDay(r.Context(), date, instructor)
	if err != nil {
		writeStoreError(w, r, h.logger, "fetch bookings", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dayResponse{Bookings: snap.Bookings, RoomBlocks: snap.RoomBlocks})
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	var in model.BookingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.checkSlot(in.Room, in.StartTime, in.EndTime); err != nil {
		writeStoreError(w, r, h.logger, "create booking", err)
		return
	}

	ctx, span := otelx.StartSpan(r.Context(), tracerName, "booking.create", "room", in.Room, "date", in.Date)
	defer span.End()

	b, err := h.store.Create(ctx, in)
	if err != nil {
		span.RecordError(err)
		writeStoreError(w, r, h.logger, "create booking", err)
		return
	}
	h.logger.Info("booking created", "booking_id", b.ID, "room", b.Room, "date", b.Date,
		"start", b.StartTime.String(), "end", b.EndTime.String())
	httpx.WriteJSON(w, http.StatusCreated, createBookingResponse{Booking: b.Public()})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id and password required")
		return
	}
	if err := h.checkSlot(req.Room, req.StartTime, req.EndTime); err != nil {
		writeStoreError(w, r, h.logger, "update booking", err)
		return
	}

	ctx, span := otelx.StartSpan(r.Context(), tracerName, "booking.update", "booking_id", req.ID)
	defer span.End()

	password := req.Password
	req.BookingInput.Password = ""
	b, err := h.store.Update(ctx, req.ID, req.BookingInput, password)
	if err != nil {
		span.RecordError(err)
		writeStoreError(w, r, h.logger, "update booking", err)
		return
	}
	h.logger.Info("booking updated", "booking_id", b.ID, "room", b.Room, "date", b.Date)
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id and password required")
		return
	}

	ctx, span := otelx.StartSpan(r.Context(), tracerName, "booking.delete", "booking_id", req.ID)
	defer span.End()

	if err := h.store.Delete(ctx, req.ID, req.Password); err != nil {
		span.RecordError(err)
		writeStoreError(w, r, h.logger, "delete booking", err)
		return
	}
	h.logger.Info("booking deleted", "booking_id", req.ID)
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *BookingHandler) Instructors(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Instructors(r.Context())
	if err != nil {
		writeStoreError(w, r, h.logger, "list instructors", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"instructors": names})
}

// checkSlot rejects rooms outside the configured grid and ranges that do not fit
// its slots.
func (h *BookingHandler) checkSlot(room string, start, end model.Clock) error {
	if err := h.checkRoom(room); err != nil {
		return err
	}
	if start >= end {
		return nil
	}
	return h.config.CheckRange(start, end)
}

// checkRoom rejects rooms outside the configured grid. An empty room list accepts any room.
func (h *BookingHandler) checkRoom(room string) error {
	room = strings.TrimSpace(room)
	if room == "" || len(h.config.Rooms) == 0 {
		return nil
	}
	for _, known := range h.config.Rooms {
		if known == room {
			return nil
		}
	}
	return model.Validationf("unknown room %q", room)
}

func dayQuery(w http.ResponseWriter, r *http.Request) (date, instructor string, ok bool) {
	q := r.URL.Query()
	date = strings.TrimSpace(q.Get("date"))
	instructor = strings.TrimSpace(q.Get("instructor"))
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return "", "", false
	}
	return date, instructor, true
}
