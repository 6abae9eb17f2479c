package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/auth"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/storage"
)

type AdminHandler struct {
	store    storage.Store
	password string
	secret   string
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

type AdminConfig struct {
	Password string
	Secret   string
	TokenTTL time.Duration
}

func NewAdminHandler(store storage.Store, cfg AdminConfig, logger *slog.Logger) *AdminHandler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	return &AdminHandler{
		store:    store,
		password: cfg.Password,
		secret:   cfg.Secret,
		ttl:      cfg.TokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

type adminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type adminDeleteRequest struct {
	ID string `json:"id"`
}

type instructorRequest struct {
	Name    string `json:"name"`
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

func (h *AdminHandler) enabled() bool {
	return h.password != "" && h.secret != ""
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.enabled() {
		httpx.WriteError(w, http.StatusServiceUnavailable, "admin access is not configured")
		return
	}
	var req adminLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.Warn("admin login rejected", "client", r.RemoteAddr)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid admin password")
		return
	}

	now := h.now()
	claims := auth.NewAdminClaims(now, h.ttl)
	token, err := auth.SignHS256(claims, h.secret)
	if err != nil {
		h.logger.Error("sign admin token failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, adminLoginResponse{
		Token:     token,
		ExpiresAt: time.Unix(claims.Exp, 0).UTC().Format(time.RFC3339),
	})
}

// RequireAdmin admits requests carrying a valid admin bearer token.
func (h *AdminHandler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.enabled() {
			httpx.WriteError(w, http.StatusServiceUnavailable, "admin access is not configured")
			return
		}
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, h.secret)
		if err != nil || claims.Role != auth.RoleAdmin {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// ListBookings pages through every booking, newest first, with an optional search.
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}
	result, err := h.store.List(r.Context(), page, q.Get("search"))
	if err != nil {
		writeStoreError(w, r, h.logger, "list bookings", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	var req adminDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.ID) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id required")
		return
	}
	if err := h.store.ForceDelete(r.Context(), strings.TrimSpace(req.ID)); err != nil {
		writeStoreError(w, r, h.logger, "delete booking", err)
		return
	}
	h.logger.Info("booking force deleted", "booking_id", req.ID)
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *AdminHandler) AddInstructor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstructor(w, r)
	if !ok {
		return
	}
	if err := h.store.AddInstructor(r.Context(), req.Name); err != nil {
		writeStoreError(w, r, h.logger, "add instructor", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, statusResponse{Success: true})
}

func (h *AdminHandler) RenameInstructor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstructor(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.OldName) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "oldName required")
		return
	}
	if err := h.store.RenameInstructor(r.Context(), req.OldName, req.NewName); err != nil {
		writeStoreError(w, r, h.logger, "rename instructor", err)
		return
	}
	h.logger.Info("instructor renamed", "from", req.OldName, "to", req.NewName)
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (h *AdminHandler) RemoveInstructor(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstructor(w, r)
	if !ok {
		return
	}
	if err := h.store.RemoveInstructor(r.Context(), req.Name); err != nil {
		writeStoreError(w, r, h.logger, "remove instructor", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Success: true})
}

func decodeInstructor(w http.ResponseWriter, r *http.Request) (instructorRequest, bool) {
	var req instructorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return instructorRequest{}, false
	}
	return req, true
}
