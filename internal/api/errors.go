package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelfbridge/shelfbridge/internal/inventory"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnconfirmed = "unconfirmed"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInventoryError maps an inventory failure onto the HTTP taxonomy:
//
//   - invalid input (bad address, validation failure)  → 400 / 406
//   - unknown device, shelf or position                → 404
//   - acknowledged but not persisted                   → 409
//   - command sent but never acknowledged              → 504
//   - anything else                                    → 500
//
// 504 deliberately mirrors a gateway timeout: the bridge worked, the
// controller did not answer, and the physical state is indeterminate.
func writeInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, inventory.ErrValidation):
		writeError(w, http.StatusNotAcceptable, ErrCodeValidation, err.Error())
	case errors.Is(err, inventory.ErrDeviceNotFound),
		errors.Is(err, inventory.ErrShelfNotFound),
		errors.Is(err, inventory.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, inventory.ErrCommitFailed):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, inventory.ErrUnconfirmed):
		writeError(w, http.StatusGatewayTimeout, ErrCodeUnconfirmed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
