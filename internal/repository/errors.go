package repository

import (
	"errors"
	"fmt"

	"student-registry/internal/apperr"

	"gorm.io/gorm"
)

// translate maps gorm errors onto the application error kinds.
// what names the record for the error message, e.g. `student 3`.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrForbidden),
		errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalid):
		// raised by a mutate callback inside a transaction
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, apperr.ErrConflict)
	default:
		return fmt.Errorf("%w: %s: %v", apperr.ErrUnavailable, what, err)
	}
}
