package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Lower layers wrap these so callers can
// match with errors.Is regardless of which entity failed.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("version conflict")
	ErrDuplicateName   = errors.New("name must be unique")
	ErrCategoryInUse   = errors.New("category has dependent flowers")
	ErrInvalidCategory = errors.New("category does not exist")
	ErrInvalidImage    = errors.New("image does not belong to this flower")
)

// CategoryInUseError reports how many flowers still reference a category.
type CategoryInUseError struct {
	CategoryID int64
	Count      int
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("cannot delete category %d: it has %d flower(s)", e.CategoryID, e.Count)
}

func (e *CategoryInUseError) Unwrap() error {
	return ErrCategoryInUse
}
