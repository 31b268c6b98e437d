package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Handler exposes the booking transactor over HTTP.
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

// Result is the body of every mutating endpoint.
type Result struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	BookingCode string       `json:"booking_code,omitempty"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

// Create handles POST /api/appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Result{Message: "invalid request body"})
		return
	}
	if missing := missingFields(req); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, Result{Message: "missing required fields: " + strings.Join(missing, ", ")})
		return
	}

	a, err := h.svc.Create(r.Context(), req)
	if err != nil {
		status, msg := statusFor(err)
		h.logger.Warn("booking rejected", "reason", msg, "provider_id", req.ProviderID)
		writeJSON(w, status, Result{Message: msg})
		return
	}
	writeJSON(w, http.StatusCreated, Result{
		Success:     true,
		Message:     "Appointment created successfully",
		BookingCode: a.Code,
		Appointment: a,
	})
}

// Get handles GET /api/appointments/{appointmentID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to get appointment", "error", err, "appointment_id", id)
		}
		writeJSON(w, status, Result{Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Cancel handles DELETE /api/appointments/{appointmentID}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		status, msg := statusFor(err)
		writeJSON(w, status, Result{Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Appointment cancelled successfully"})
}

// Complete handles POST /api/appointments/{appointmentID}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Complete(r.Context(), id); err != nil {
		status, msg := statusFor(err)
		writeJSON(w, status, Result{Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Appointment marked as completed"})
}

// ListByProvider handles GET /api/providers/{providerID}/appointments.
func (h *Handler) ListByProvider(w http.ResponseWriter, r *http.Request) {
	providerID, ok := catalog.ProviderIDParam(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListByProvider(r.Context(), providerID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "provider_id", providerID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("failed to build dashboard", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, d)
}

// ClearCache handles POST /api/cache/clear.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(r.Context()); err != nil {
		h.logger.Error("failed to clear cache", "error", err)
		writeJSON(w, http.StatusInternalServerError, Result{Message: "failed to clear cache"})
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Cache cleared"})
}

func statusFor(err error) (int, string) {
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest, v.Reason
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrSlotTaken):
		return http.StatusConflict, ErrSlotTaken.Error()
	case errors.Is(err, ErrNotConfirmed):
		return http.StatusConflict, ErrNotConfirmed.Error()
	default:
		return http.StatusInternalServerError, ErrPersistence.Error()
	}
}

func missingFields(req CreateRequest) []string {
	var missing []string
	if req.ProviderID == 0 {
		missing = append(missing, "provider_id")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Time) == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(req.ClientName) == "" {
		missing = append(missing, "client_name")
	}
	if strings.TrimSpace(req.ClientPhone) == "" {
		missing = append(missing, "client_phone")
	}
	if req.ProcedureID == 0 {
		missing = append(missing, "procedure_id")
	}
	return missing
}

func appointmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "appointmentID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Result{Message: "invalid appointment id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
