package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mmenanno/inventory-browser/internal/items"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string             `json:"error"`
	Status  int                `json:"status"`
	Details []items.FieldError `json:"details,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:  message,
		Status: status,
	})
}

// respondValidationError sends a 400 listing each rejected field
func respondValidationError(w http.ResponseWriter, verr *items.ValidationError) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Status:  http.StatusBadRequest,
		Details: verr.Fields,
	})
}

// notFound is the fallback for unmatched routes
func notFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Route Not Found")
}
