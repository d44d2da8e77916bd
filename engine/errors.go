/*
errors.go - Centralized error types for the reporting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Most engine functions are total and never fail; the errors here come
  from input parsing, taxonomy validation and the data-access layer.

ERROR CATEGORIES:
  1. Input errors - Bad dates, fiscal months, presets
  2. Taxonomy errors - Category trees the engine cannot represent
  3. Store errors - Missing organizations, accounts, budgets, and stored
     records that fail validation

USAGE:
    if errors.Is(err, engine.ErrNotFound) {
        // 404
    }

SEE ALSO:
  - store.go: Data-access interface returning ErrNotFound
  - category.go: Returns taxonomy errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidFiscalMonth is returned when a fiscal year start month is outside 1-12.
	ErrInvalidFiscalMonth = errors.New("fiscal year start month must be between 1 and 12")

	// ErrInvalidPreset is returned for an unknown period preset name.
	ErrInvalidPreset = errors.New("unknown period preset")

	// ErrInvalidPeriod is returned when a range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrCategoryTooDeep is returned when a child category's parent is itself a child.
	ErrCategoryTooDeep = errors.New("category tree deeper than two levels")

	// ErrCategoryTypeMismatch is returned when a child's type differs from its parent's.
	ErrCategoryTypeMismatch = errors.New("child category type differs from parent")

	// ErrNotFound is returned by stores when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStoredData marks a validation failure on a stored record
	// (an organization's fiscal month, a budget's range). IsClientError is
	// false for any error wrapping it.
	ErrInvalidStoredData = errors.New("invalid stored data")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "organization", "account", "budget"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CategoryError points at the category that broke a taxonomy rule.
type CategoryError struct {
	CategoryID CategoryID
	ParentID   CategoryID
	Err        error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("category %s (parent %s): %v", e.CategoryID, e.ParentID, e.Err)
}

func (e *CategoryError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	if errors.Is(err, ErrInvalidStoredData) {
		return false
	}
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidFiscalMonth) ||
		errors.Is(err, ErrInvalidPreset) ||
		errors.Is(err, ErrInvalidPeriod)
}
