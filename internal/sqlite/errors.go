package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/ganot/atelier/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapError converts driver errors into repository sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case isForeignKeyViolation(err):
		return repository.ErrForeignKeyViolation
	case isUniqueViolation(err):
		return repository.ErrConflict
	default:
		return err
	}
}
