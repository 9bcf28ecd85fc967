package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/atelier/internal/domain/history"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, history.ErrProductNotFound):
		return &APIError{Code: "PRODUCT_NOT_FOUND", Message: "product not found", RecoveryHint: "Add the product to the catalog first"}
	case errors.Is(err, history.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid input", RecoveryHint: "product_id must be non-empty"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
