package history

import "errors"

var (
	// ErrProductNotFound indicates the product is not in the catalog snapshot.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidInput indicates invalid input for history operations.
	ErrInvalidInput = errors.New("invalid history input")
)
