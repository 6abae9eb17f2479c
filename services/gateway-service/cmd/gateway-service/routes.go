package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/roombook/libs/auth"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type upstreams struct {
	booking   *url.URL
	analytics *url.URL
}

// newRouter fronts booking-service for the calendar and admin API and
// analytics-service for usage reports. booking-service authenticates its own
// admin routes; usage reports are checked here against the same admin token.
func newRouter(up upstreams, jwtSecret string, checks ...runtime.ReadyCheck) *http.ServeMux {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	bookingProxy := httputil.NewSingleHostReverseProxy(up.booking)
	bookingProxy.Transport = transport
	analyticsProxy := httputil.NewSingleHostReverseProxy(up.analytics)
	analyticsProxy.Transport = transport

	mux := runtime.NewBaseMuxWithReady(checks...)
	for _, prefix := range []string{
		"/api/v1/config",
		"/api/v1/init",
		"/api/v1/bookings",
		"/api/v1/instructors",
		"/api/v1/admin",
	} {
		registerProxy(mux, prefix, bookingProxy)
	}
	registerProxy(mux, "/api/v1/usage", requireAdmin(analyticsProxy, jwtSecret))
	return mux
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func requireAdmin(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if jwtSecret == "" {
			httpx.WriteError(w, http.StatusServiceUnavailable, "admin access is not configured")
			return
		}
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, jwtSecret)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.Role != auth.RoleAdmin {
			httpx.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
