package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := NewMemoryRepository()
	if err := SeedDemo(context.Background(), repo); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := NewHandler(NewService(repo, WithLogger(logging.Discard())), logging.Discard())
	r := chi.NewRouter()
	r.Get("/api/providers", h.ListProviders)
	r.Get("/api/providers/{providerID}", h.GetProvider)
	r.Get("/api/providers/{providerID}/procedures", h.ListProcedures)
	return r
}

func TestListProvidersHandler(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Providers []Provider `json:"providers"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(body.Providers))
	}
}

func TestGetProviderHandler(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		path string
		code int
	}{
		{"/api/providers/1", http.StatusOK},
		{"/api/providers/999", http.StatusNotFound},
		{"/api/providers/abc", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.code, w.Code)
		}
	}
}

func TestListProceduresHandler(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/1/procedures", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Procedures []Procedure `json:"procedures"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Procedures) != 3 || body.Procedures[0].Code != "101" {
		t.Fatalf("unexpected procedures: %+v", body.Procedures)
	}
}
