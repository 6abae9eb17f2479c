package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
)

// Register mounts the calendar API on mux. Mutating routes pass through limit.
func Register(mux *http.ServeMux, b *BookingHandler, a *AdminHandler, limit httpx.Middleware) {
	if limit == nil {
		limit = func(h http.Handler) http.Handler { return h }
	}
	mutating := func(h http.HandlerFunc) http.Handler {
		return limit(httpx.Method(h, http.MethodPost))
	}

	mux.HandleFunc("/api/v1/config", httpx.Method(b.Config, http.MethodGet))
	mux.HandleFunc("/api/v1/init", httpx.Method(b.Init, http.MethodGet))
	mux.Handle("/api/v1/bookings", bookingsRoute(b, limit))
	mux.Handle("/api/v1/bookings/update", mutating(b.Update))
	mux.Handle("/api/v1/bookings/delete", mutating(b.Delete))
	mux.HandleFunc("/api/v1/instructors", httpx.Method(b.Instructors, http.MethodGet))

	mux.Handle("/api/v1/admin/login", mutating(a.Login))
	mux.HandleFunc("/api/v1/admin/bookings", httpx.Method(a.RequireAdmin(a.ListBookings), http.MethodGet))
	mux.HandleFunc("/api/v1/admin/bookings/delete", httpx.Method(a.RequireAdmin(a.DeleteBooking), http.MethodPost))
	mux.HandleFunc("/api/v1/admin/instructors", httpx.Method(a.RequireAdmin(a.AddInstructor), http.MethodPost))
	mux.HandleFunc("/api/v1/admin/instructors/update", httpx.Method(a.RequireAdmin(a.RenameInstructor), http.MethodPost))
	mux.HandleFunc("/api/v1/admin/instructors/delete", httpx.Method(a.RequireAdmin(a.RemoveInstructor), http.MethodPost))
}

// bookingsRoute rate limits creation but not the day read sharing its path.
func bookingsRoute(b *BookingHandler, limit httpx.Middleware) http.Handler {
	limited := limit(http.HandlerFunc(b.Bookings))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		b.Bookings(w, r)
	})
}
