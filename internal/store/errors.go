package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound indicates the referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCategory indicates a category with the same name exists.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrCategoryInUse indicates a delete was blocked because interval
	// records still reference the category.
	ErrCategoryInUse = errors.New("category in use")

	// ErrInvalidInput indicates a malformed argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates the underlying database could not
	// complete the operation. Nothing was written.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	return sqliteCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// sqliteCode is the extended result code of a driver error, or 0.
func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}
