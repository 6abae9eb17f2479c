package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/grid"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, limit httpx.Middleware) *httptest.Server {
	t.Helper()
	store, err := storage.NewMemoryStore(storage.MemoryOptions{
		Instructors: []string{"Kim", "Park"},
		HashCost:    bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := CalendarConfig{
		Config: grid.Config{StartHour: 9, EndHour: 22, SlotMinutes: 30, Rooms: []string{"R1", "R2"}},
		Title:  "Mentoring rooms",
	}
	mux := http.NewServeMux()
	Register(mux,
		NewBookingHandler(store, cfg, logger),
		NewAdminHandler(store, AdminConfig{Password: "admin-pass", Secret: "test-secret"}, logger),
		limit,
	)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func booking(room, instructor, start, end string) map[string]any {
	return map[string]any{
		"date": "2026-10-19", "room": room, "instructor": instructor,
		"startTime": start, "endTime": end,
		"name": "Lee", "course": "Backend", "topic": "Go", "people": 2, "password": "1234",
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/config", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body["startHour"] != float64(9) || body["slotMinutes"] != float64(30) || body["title"] != "Mentoring rooms" {
		t.Fatalf("unexpected config %v", body)
	}
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/config", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestBookingLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	url := srv.URL + "/api/v1/bookings"

	resp, body := do(t, http.MethodPost, url, "", booking("R1", "Kim", "10:00", "11:00"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d body %v", resp.StatusCode, body)
	}
	created := body["booking"].(map[string]any)
	id := created["id"].(string)
	if _, leaked := created["password"]; leaked {
		t.Fatal("password must not be echoed")
	}

	resp, body = do(t, http.MethodPost, url, "", booking("R1", "Park", "10:30", "11:30"))
	if resp.StatusCode != http.StatusConflict || body["error"] == "" {
		t.Fatalf("expected 409 with reason, got %d %v", resp.StatusCode, body)
	}

	short := booking("R2", "Kim", "10:00", "11:00")
	short["password"] = "12"
	if resp, _ = do(t, http.MethodPost, url, "", short); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", resp.StatusCode)
	}
	if resp, _ = do(t, http.MethodPost, url, "", booking("R9", "Kim", "10:00", "11:00")); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown room, got %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, url+"?date=2026-10-19&instructor=Park", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch: %d", resp.StatusCode)
	}
	if len(body["bookings"].([]any)) != 0 || len(body["roomBlocks"].([]any)) != 1 {
		t.Fatalf("Park should see Kim's booking as a block: %v", body)
	}

	update := booking("R1", "Kim", "10:00", "11:30")
	update["id"] = id
	update["password"] = "wrong"
	if resp, _ = do(t, http.MethodPost, url+"/update", "", update); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	update["password"] = "1234"
	if resp, body = do(t, http.MethodPost, url+"/update", "", update); resp.StatusCode != http.StatusOK {
		t.Fatalf("update: %d %v", resp.StatusCode, body)
	}

	del := map[string]any{"id": id, "password": "1234"}
	if resp, _ = do(t, http.MethodPost, url+"/delete", "", del); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp, _ = do(t, http.MethodPost, url+"/delete", "", del); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCreateRejectsRangesOffTheGrid(t *testing.T) {
	srv := newTestServer(t, nil)
	url := srv.URL + "/api/v1/bookings"

	for _, r := range [][2]string{{"09:30", "09:45"}, {"07:00", "08:00"}, {"21:30", "22:30"}} {
		if resp, body := do(t, http.MethodPost, url, "", booking("R1", "Kim", r[0], r[1])); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s-%s: expected 400, got %d %v", r[0], r[1], resp.StatusCode, body)
		}
	}
	resp, body := do(t, http.MethodPost, url, "", booking("R1", "Kim", "13:00", "14:00"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d body %v", resp.StatusCode, body)
	}
	id := body["booking"].(map[string]any)["id"].(string)

	update := booking("R1", "Kim", "13:00", "13:20")
	update["id"] = id
	if resp, _ = do(t, http.MethodPost, url+"/update", "", update); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("update off the grid: expected 400, got %d", resp.StatusCode)
	}

	_, body = do(t, http.MethodGet, url+"?date=2026-10-19&instructor=Kim", "", nil)
	bookings := body["bookings"].([]any)
	if len(bookings) != 1 {
		t.Fatalf("expected only the aligned booking, got %v", bookings)
	}
	if got := bookings[0].(map[string]any)["endTime"]; got != "14:00" {
		t.Fatalf("rejected update must not change the booking, end is %v", got)
	}
}

func TestFetchDayRequiresValidDate(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, q := range []string{"", "?date=19-10-2026"} {
		if resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/bookings"+q, "", nil); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestInitReturnsRosterAndDay(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, http.MethodPost, srv.URL+"/api/v1/bookings", "", booking("R1", "Kim", "09:00", "10:00"))

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/init?date=2026-10-19&instructor=Kim", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("init: %d", resp.StatusCode)
	}
	if len(body["instructors"].([]any)) != 2 || len(body["bookings"].([]any)) != 1 {
		t.Fatalf("unexpected init payload %v", body)
	}
}

func TestAdminFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	_, body := do(t, http.MethodPost, srv.URL+"/api/v1/bookings", "", booking("R1", "Kim", "09:00", "10:00"))
	id := body["booking"].(map[string]any)["id"].(string)

	if resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/admin/bookings", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/admin/login", "", map[string]string{"password": "nope"}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/admin/login", "", map[string]string{"password": "admin-pass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", resp.StatusCode)
	}
	token := body["token"].(string)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/admin/bookings?page=1&search=lee", token, nil)
	if resp.StatusCode != http.StatusOK || body["total"] != float64(1) || body["totalPages"] != float64(1) {
		t.Fatalf("list: %d %v", resp.StatusCode, body)
	}
	if resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/admin/bookings?page=zero", token, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", resp.StatusCode)
	}

	rename := map[string]string{"oldName": "Kim", "newName": "Kang"}
	if resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/admin/instructors/update", token, rename); resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: %d", resp.StatusCode)
	}
	_, body = do(t, http.MethodGet, srv.URL+"/api/v1/bookings?date=2026-10-19&instructor=Kang", "", nil)
	if len(body["bookings"].([]any)) != 1 {
		t.Fatalf("renamed instructor should own the booking: %v", body)
	}
	if resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/admin/instructors", token, map[string]string{"name": "Park"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate instructor, got %d", resp.StatusCode)
	}

	if resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/admin/bookings/delete", token, map[string]string{"id": id}); resp.StatusCode != http.StatusOK {
		t.Fatalf("force delete: %d", resp.StatusCode)
	}
	if resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/admin/bookings/delete", "forged.token.value", map[string]string{"id": id}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", resp.StatusCode)
	}
}

type denyAll struct{}

func (denyAll) Allow(_ context.Context, _ string) (bool, error) { return false, nil }

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, httpx.RateLimit(denyAll{}, nil, true))

	if resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/bookings", "", booking("R1", "Kim", "09:00", "10:00")); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/bookings?date=2026-10-19", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", resp.StatusCode)
	}
}
