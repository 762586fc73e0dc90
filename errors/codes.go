package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Client errors. These are terminal and never retried.
const (
	// ErrCodeInvalidInput indicates a missing or malformed required field.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the resource is not visible to the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates a missing or invalid caller identity.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeConflict indicates the request does not fit the resource's current state.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodePayloadTooLarge indicates the request body exceeds the accepted size.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Backend errors.
const (
	// ErrCodeStoreUnavailable indicates the blob store could not serve the request.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeTranscriptionFailed indicates the speech backend failed, partially or totally.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeDatabaseError indicates the session store failed.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeServiceUnavailable indicates a dependency is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStoreUnavailable:   true,
	ErrCodeServiceUnavailable: true,
	ErrCodeDatabaseError:      true,
	ErrCodeRateLimited:        true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
