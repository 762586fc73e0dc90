package session

import (
	"strings"

	apperrors "github.com/kbukum/scribe/errors"
)

// ErrNotFound builds the NOT_FOUND error for a session id.
func ErrNotFound(id string) error {
	return apperrors.NotFound("session", id)
}

// CheckCreate validates Create arguments.
func CheckCreate(patientID, ownerID string) error {
	if strings.TrimSpace(patientID) == "" {
		return apperrors.InvalidInput("patientId", "is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return apperrors.InvalidInput("userId", "is required")
	}
	return nil
}

// StoreError passes AppErrors through and wraps anything else as DATABASE_ERROR.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.DatabaseError(err)
}
