package database

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/scribe/errors"
)

// IsNotFoundError reports whether err is gorm's record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a gorm error to an AppError. Record-not-found becomes
// NOT_FOUND for resource/id; AppErrors pass through.
func FromDatabase(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if IsNotFoundError(err) {
		return apperrors.NotFound(resource, id).WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
