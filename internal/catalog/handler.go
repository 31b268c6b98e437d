package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Handler serves the read-only provider catalog.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// ListProviders handles GET /api/providers.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.svc.ActiveProviders(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		http.Error(w, "failed to list providers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

// GetProvider handles GET /api/providers/{providerID}.
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := ProviderIDParam(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Provider(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "provider not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get provider", "error", err, "provider_id", id)
		http.Error(w, "failed to get provider", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListProcedures handles GET /api/providers/{providerID}/procedures.
func (h *Handler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	id, ok := ProviderIDParam(w, r)
	if !ok {
		return
	}
	procs, err := h.svc.Procedures(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list procedures", "error", err, "provider_id", id)
		http.Error(w, "failed to list procedures", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider_id": id, "procedures": procs})
}

// ProviderIDParam parses the {providerID} route parameter, writing a 400 on
// failure.
func ProviderIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "providerID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
