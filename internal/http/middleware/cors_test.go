package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	called := false
	mw := CORS([]string{"https://Booking.example/"})
	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Origin", "https://booking.example")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://booking.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Fatalf("expected request id to be exposed, got %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatalf("expected Vary: Origin")
	}
}

func TestCORSDeniesUnknownOrigin(t *testing.T) {
	called := false
	mw := CORS([]string{"https://booking.example"})
	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Origin", "https://unknown.example")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow origin header, got %q", got)
	}
	if !called {
		t.Fatalf("expected handler to be called")
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	mw := CORS([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Origin", "https://random.example")
	rec := httptest.NewRecorder()

	mw(okHandler(nil)).ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://random.example" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	called := false
	mw := CORS([]string{"https://booking.example"})
	req := httptest.NewRequest(http.MethodOptions, "/api/whatsapp/webhook", nil)
	req.Header.Set("Origin", "https://booking.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Hub-Signature-256")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected handler to not be called on preflight")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-Hub-Signature-256") {
		t.Fatalf("expected webhook signature header to be allowed, got %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
	methods := rec.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(methods, "DELETE") || strings.Contains(methods, "PUT") {
		t.Fatalf("unexpected allowed methods %q", methods)
	}
}

func TestCORSRejectsUnlistedPreflight(t *testing.T) {
	called := false
	mw := CORS([]string{"https://booking.example"})
	req := httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	mw(okHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected preflight to stop at the middleware")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestCORSWithoutOriginPassesThrough(t *testing.T) {
	called := false
	rec := httptest.NewRecorder()
	CORS([]string{"https://booking.example"})(okHandler(&called)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", nil))

	if !called || rec.Header().Get("Vary") != "" {
		t.Fatalf("expected untouched server-to-server request")
	}
}
