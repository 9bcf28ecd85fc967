package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ganot/atelier/internal/domain/history"
)

const maxRequestBody = 1 << 16

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeJSON parses a bounded request body into out.
func DecodeJSON(body io.Reader, out any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBody))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	return nil
}

// WriteJSON writes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Code: code, Message: message})
}

// WriteDomainError maps domain errors to HTTP status codes.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, history.ErrProductNotFound):
		WriteError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error())
	case errors.Is(err, ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
