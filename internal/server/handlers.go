package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shineum/mail-relay-lite/internal/contact"
)

// maxBodySize caps the contact request body well above the clamped field
// limits.
const maxBodySize = 64 * 1024

type statusResponse struct {
	OK bool `json:"ok"`
}

type sendResponse struct {
	OK         bool   `json:"ok"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{OK: true})
}

// handleContact runs the pipeline: decode, validate, relay. Validation
// failures return immediately; no transport call is attempted.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission

	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields", "")
		return
	}

	if err := sub.Validate(); err != nil {
		if errors.Is(err, contact.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, "Invalid email", "")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing required fields", "")
		return
	}

	receipt, err := s.relay.Process(r.Context(), &sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{OK: true, PreviewURL: receipt.PreviewURL})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
