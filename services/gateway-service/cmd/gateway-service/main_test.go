package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/auth"
)

func backend(name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.URL.Path))
	}))
}

func TestRouting(t *testing.T) {
	booking := backend("booking")
	defer booking.Close()
	analytics := backend("analytics")
	defer analytics.Close()

	secret := "test-secret"
	mux := newRouter(upstreams{
		booking:   mustParseURL(booking.URL),
		analytics: mustParseURL(analytics.URL),
	}, secret)

	token, err := auth.SignHS256(auth.NewAdminClaims(time.Now(), time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	cases := []struct {
		name     string
		path     string
		token    string
		status   int
		upstream string
	}{
		{"config", "/api/v1/config", "", http.StatusOK, "booking"},
		{"bookings", "/api/v1/bookings?date=2025-03-10", "", http.StatusOK, "booking"},
		{"booking update", "/api/v1/bookings/update", "", http.StatusOK, "booking"},
		{"admin passthrough", "/api/v1/admin/bookings", "", http.StatusOK, "booking"},
		{"usage with token", "/api/v1/usage?date=2025-03-10", token, http.StatusOK, "analytics"},
		{"usage without token", "/api/v1/usage?date=2025-03-10", "", http.StatusUnauthorized, ""},
		{"usage bad token", "/api/v1/usage", "nope", http.StatusUnauthorized, ""},
		{"unknown", "/api/v1/payments", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if got := rec.Header().Get("X-Upstream"); got != tc.upstream {
				t.Fatalf("expected upstream %q, got %q", tc.upstream, got)
			}
		})
	}
}

func TestRequireAdminRejectsOtherRoles(t *testing.T) {
	secret := "test-secret"
	h := requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), secret)

	claims := auth.NewAdminClaims(time.Now(), time.Hour)
	claims.Role = "member"
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	unconfigured := requireAdmin(http.NotFoundHandler(), "")
	rec = httptest.NewRecorder()
	unconfigured.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
