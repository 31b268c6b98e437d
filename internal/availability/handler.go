package availability

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

type Handler struct {
	engine *Engine
	logger *logging.Logger
}

func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// Dates handles GET /api/providers/{providerID}/dates?days=N.
func (h *Handler) Dates(w http.ResponseWriter, r *http.Request) {
	providerID, ok := catalog.ProviderIDParam(w, r)
	if !ok {
		return
	}
	horizon := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		horizon = n
	}

	dates, err := h.engine.CandidateDates(r.Context(), providerID, horizon)
	if err != nil {
		h.logger.Error("failed to compute candidate dates", "error", err, "provider_id", providerID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// Times handles GET /api/providers/{providerID}/times?date=DD/MM/YYYY&procedure_id=N.
func (h *Handler) Times(w http.ResponseWriter, r *http.Request) {
	providerID, ok := catalog.ProviderIDParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	rawProc := strings.TrimSpace(q.Get("procedure_id"))
	if date == "" || rawProc == "" {
		http.Error(w, "date and procedure_id are required", http.StatusBadRequest)
		return
	}
	procedureID, err := strconv.ParseInt(rawProc, 10, 64)
	if err != nil {
		http.Error(w, "invalid procedure_id", http.StatusBadRequest)
		return
	}

	times, err := h.engine.CandidateTimes(r.Context(), providerID, date, procedureID)
	if err != nil {
		h.logger.Error("failed to compute candidate times", "error", err, "provider_id", providerID, "date", date)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"times": times})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
