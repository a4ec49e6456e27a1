package timer

import (
	"errors"

	"github.com/sadopc/grindstone/internal/store"
)

var (
	// ErrInvalidTransition indicates the operation is not allowed in the
	// current state. The engine state is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidCategory indicates the referenced category does not exist.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrCategoryRequired indicates a work interval cannot start because no
	// category was supplied or selected.
	ErrCategoryRequired = errors.New("category required")

	// ErrInvalidInput is shared with the store so callers match one value.
	ErrInvalidInput = store.ErrInvalidInput
)
