package bills

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/scanning"
	"github.com/zombor/bill-tracker/internal/summary"
)

type scanResponse struct {
	Result  *scanning.ExtractionResult `json:"result"`
	Warning string                     `json:"warning,omitempty"`
}

type saveBillRequest struct {
	Date        string          `json:"date"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Items       []scanning.Item `json:"items"`
}

type summaryResponse struct {
	Total   float64              `json:"total"`
	Monthly []summary.MonthTotal `json:"monthly"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleAPIListEntries returns every entry of the user's ledger
func (s *Server) handleAPIListEntries(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	entries, err := s.service.ListEntries(r.Context(), session.Username)
	if err != nil {
		slog.Error("Error listing entries", "username", session.Username, "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleAPICreateEntry adds a manual entry
func (s *Server) handleAPICreateEntry(w http.ResponseWriter, r *http.Request) {
	var req Entry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session := auth.FromContext(r.Context())
	entry, err := s.service.AddManual(r.Context(), session.Username, req)
	if errors.Is(err, ErrInvalidEntry) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Error creating entry", "username", session.Username, "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleAPIDeleteEntry deletes one entry; unknown ids still return 204
func (s *Server) handleAPIDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	session := auth.FromContext(r.Context())
	if err := s.service.DeleteEntries(r.Context(), session.Username, id); err != nil {
		slog.Error("Error deleting entry", "username", session.Username, "id", id, "error", err)
		writeJSONError(w, "Error deleting entry", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIScan extracts an uploaded bill without saving it
func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readUpload(w, r)
	if err != nil {
		var upErr *uploadError
		errors.As(err, &upErr)
		writeJSONError(w, upErr.message, upErr.status)
		return
	}

	ctx, cancel := s.scanContext(r)
	defer cancel()

	result, err := s.service.Scan(ctx, data, contentType)
	switch {
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, scanning.ErrExtractionFailed):
		writeJSON(w, http.StatusOK, scanResponse{Result: result, Warning: err.Error()})
	case err != nil:
		slog.Error("Error scanning bill", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, scanResponse{Result: result})
	}
}

// handleAPISaveBill stores a reviewed extraction
func (s *Server) handleAPISaveBill(w http.ResponseWriter, r *http.Request) {
	var req saveBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session := auth.FromContext(r.Context())
	entries, err := s.service.SaveScanned(r.Context(), session.Username, ScannedBill{
		Date:        req.Date,
		Amount:      req.Amount,
		Description: req.Description,
		Items:       req.Items,
	})
	if errors.Is(err, ErrInvalidEntry) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Error saving bill", "username", session.Username, "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entries)
}

// handleAPISummary returns the running total and the monthly sums
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	overview, err := s.service.Overview(r.Context(), session.Username)
	if err != nil {
		slog.Error("Error loading summary", "username", session.Username, "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Total: overview.Total, Monthly: overview.Monthly})
}
