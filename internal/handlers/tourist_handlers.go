package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/borderdesk/visatrack/internal/domain"
	"github.com/borderdesk/visatrack/internal/service"
)

type createTouristInput struct {
	FullName           string  `json:"full_name"`
	Nationality        string  `json:"nationality"`
	PassportNumber     string  `json:"passport_number"`
	VisaNumber         string  `json:"visa_number"`
	VisaType           string  `json:"visa_type"`
	VisaExpirationDate string  `json:"visa_expiration_date"`
	DateOfEntry        string  `json:"date_of_entry"`
	DurationOfStay     int     `json:"duration_of_stay"`
	IntendedLocation   string  `json:"intended_location"`
	Email              string  `json:"email"`
	PhoneNumber        string  `json:"phone_number"`
	Notes              *string `json:"notes,omitempty"`
}

// CreateTourist handles new record registration
func (h *Handlers) CreateTourist(w http.ResponseWriter, r *http.Request) {
	var in createTouristInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if in.FullName == "" || in.Nationality == "" || in.PassportNumber == "" ||
		in.VisaNumber == "" || in.VisaType == "" || in.Email == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	expiration, ok := parseDate(in.VisaExpirationDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "visa_expiration_date must be YYYY-MM-DD")
		return
	}
	entry, ok := parseDate(in.DateOfEntry)
	if !ok {
		writeError(w, http.StatusBadRequest, "date_of_entry must be YYYY-MM-DD")
		return
	}

	req := &domain.CreateTouristRequest{
		FullName:           in.FullName,
		Nationality:        in.Nationality,
		PassportNumber:     in.PassportNumber,
		VisaNumber:         in.VisaNumber,
		VisaType:           in.VisaType,
		VisaExpirationDate: expiration,
		DateOfEntry:        entry,
		DurationOfStay:     in.DurationOfStay,
		IntendedLocation:   in.IntendedLocation,
		Email:              in.Email,
		PhoneNumber:        in.PhoneNumber,
		Notes:              in.Notes,
	}

	tourist, err := h.tourists.AddTourist(r.Context(), req, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create record")
		return
	}

	writeJSON(w, http.StatusCreated, tourist)
}

// ListTourists returns records with freshly derived statuses
func (h *Handlers) ListTourists(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	if passport := r.URL.Query().Get("passport_number"); passport != "" {
		tourist, err := h.tourists.FindByPassport(r.Context(), passport, time.Now())
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusOK, []domain.Tourist{})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to retrieve records")
			return
		}
		writeJSON(w, http.StatusOK, []domain.Tourist{*tourist})
		return
	}

	var status *domain.VisaStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		st, ok := domain.ParseVisaStatus(statusParam)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid status parameter")
			return
		}
		status = &st
	}

	tourists, err := h.tourists.ListTourists(r.Context(), limit, offset, status, r.URL.Query().Get("nationality"), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve records")
		return
	}
	if tourists == nil {
		tourists = []domain.Tourist{}
	}

	writeJSON(w, http.StatusOK, tourists)
}

// GetTourist returns a single record with freshly derived status
func (h *Handlers) GetTourist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	tourist, err := h.tourists.GetTourist(r.Context(), id, time.Now())
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve record")
		return
	}

	writeJSON(w, http.StatusOK, tourist)
}

// SendReminder triggers the manual reminder action
func (h *Handlers) SendReminder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	msg, err := h.tourists.SendReminder(r.Context(), id, time.Now())
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

// RecordExit marks a tourist as departed
func (h *Handlers) RecordExit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var in struct {
		ExitDate string  `json:"exit_date"`
		Notes    *string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	exitDate, ok := parseDate(in.ExitDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "exit_date must be YYYY-MM-DD")
		return
	}

	tourist, err := h.tourists.RecordExit(r.Context(), id, exitDate, in.Notes)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record exit")
		return
	}

	writeJSON(w, http.StatusOK, tourist)
}

// RecordRenewal marks a visa as renewed with a new expiration date
func (h *Handlers) RecordRenewal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	var in struct {
		RenewalDate       string  `json:"renewal_date"`
		NewExpirationDate string  `json:"new_expiration_date"`
		Notes             *string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	renewalDate, ok := parseDate(in.RenewalDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "renewal_date must be YYYY-MM-DD")
		return
	}
	newExpiration, ok := parseDate(in.NewExpirationDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "new_expiration_date must be YYYY-MM-DD")
		return
	}

	tourist, err := h.tourists.RecordRenewal(r.Context(), id, renewalDate, newExpiration, in.Notes)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record renewal")
		return
	}

	writeJSON(w, http.StatusOK, tourist)
}

// DashboardStats returns per-status counts derived freshly for every record
func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tourists.DashboardStats(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// TriggerSweep runs the reminder sweep on demand (admin only)
func (h *Handlers) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil || claims.Role != "admin" {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	result, err := h.tourists.Sweep(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
