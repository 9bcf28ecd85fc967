package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrConflict is returned when a unique constraint fails
	ErrConflict = errors.New("conflict: entity already exists")
)
