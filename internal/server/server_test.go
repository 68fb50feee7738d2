package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/fittrack/internal/database"
	"github.com/dukerupert/fittrack/internal/handler"
	"github.com/dukerupert/fittrack/internal/middleware"
	"github.com/dukerupert/fittrack/internal/store"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	data := handler.Data{
		Habits:   store.NewHabitStore(db),
		Logs:     store.NewLogStore(db),
		Location: time.UTC,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(db, data, Options{DefaultTimezone: "UTC"}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv.Router()
}

func do(h http.Handler, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := do(h, "POST", "/register", url.Values{
		"name":             {"Test User"},
		"email":            {"test@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
		"terms":            {"on"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie after register")
	return nil
}

func TestHealth(t *testing.T) {
	h := setupServer(t)

	rec := do(h, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStaticAssets(t *testing.T) {
	h := setupServer(t)

	rec := do(h, "GET", "/static/app.css", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := setupServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/dashboard", http.StatusSeeOther},
		{"GET", "/habits", http.StatusSeeOther},
		{"GET", "/profile", http.StatusSeeOther},
		{"GET", "/api/habits", http.StatusUnauthorized},
		{"GET", "/api/dashboard", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := do(h, tt.method, tt.path, nil)
		if rec.Code != tt.status {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
		}
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	h := setupServer(t)

	rec := do(h, "GET", "/no/such/page", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Error("expected the not found page")
	}

	c := register(t, h)
	rec = do(h, "GET", "/no/such/page", nil, c)
	if rec.Code != http.StatusNotFound {
		t.Errorf("signed-in status = %d, want 404", rec.Code)
	}
}

func TestSignedInFlow(t *testing.T) {
	h := setupServer(t)
	c := register(t, h)

	rec := do(h, "POST", "/habits", url.Values{"name": {"Drink water"}}, c)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(h, "GET", "/dashboard", nil, c)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Drink water") {
		t.Error("dashboard should list the new habit")
	}

	rec = do(h, "GET", "/api/habits", nil, c)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Drink water") {
		t.Errorf("api status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = do(h, "POST", "/logout", url.Values{}, c)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = do(h, "GET", "/dashboard", nil, c)
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("after logout Location = %q, want /login", loc)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	h := setupServer(t)
	form := url.Values{"email": {"nobody@example.com"}, "password": {"wrong-password"}}

	for i := 0; i < 10; i++ {
		if rec := do(h, "POST", "/login", form); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	rec := do(h, "POST", "/login", form)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}
