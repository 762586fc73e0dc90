package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies request failures.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeConflict
	ErrCodeRateLimit
	ErrCodeClient
	ErrCodeServer
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeConflict:
		return "conflict"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeClient:
		return "client"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified request failure. StatusCode is zero when no response
// was received.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Retryable  bool
	// Body is the start of the response body, for diagnostics.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && e.Body != "":
		return fmt.Sprintf("httpclient: %s (status %d): %s", e.Code, e.StatusCode, e.Body)
	case e.StatusCode > 0:
		return fmt.Sprintf("httpclient: %s (status %d)", e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("httpclient: %s: %v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

const maxErrorBody = 4 << 10

// ClassifyStatus returns the error for a non-2xx status, or nil.
func ClassifyStatus(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	e := &Error{StatusCode: status, Body: strings.TrimSpace(string(body))}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusConflict:
		e.Code = ErrCodeConflict
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeClient
	}
	return e
}

func codeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsNotFound reports a 404.
func IsNotFound(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeNotFound
}

// IsTimeout reports a failure caused by a deadline.
func IsTimeout(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeTimeout
}

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
