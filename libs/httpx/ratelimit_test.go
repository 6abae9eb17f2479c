package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "10.0.0.1")
		if err != nil || !ok {
			t.Fatalf("request %d should be allowed (err=%v)", i, err)
		}
	}
	if ok, _ := rl.Allow(ctx, "10.0.0.1"); ok {
		t.Fatal("third request within the burst window should be rejected")
	}
	if ok, _ := rl.Allow(ctx, "10.0.0.2"); !ok {
		t.Fatal("other clients have their own bucket")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitFailOpen(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	open := RateLimit(failingLimiter{}, nil, true)(ok)
	rw := httptest.NewRecorder()
	open.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	if rw.Code != http.StatusNoContent {
		t.Fatalf("fail-open should pass through, got %d", rw.Code)
	}

	closed := RateLimit(failingLimiter{}, nil, false)(ok)
	rw = httptest.NewRecorder()
	closed.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed should return 503, got %d", rw.Code)
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientKey(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}
