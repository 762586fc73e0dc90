package kafka

import (
	"context"
	"errors"
	"strings"
)

var nonRetryable = []string{
	"message too large",
	"invalid topic",
	"unknown topic",
	"authorization failed",
	"sasl authentication failed",
}

// IsRetryableError reports whether a write error may succeed on retry.
// Broker-side rejections of the message itself and context errors are final.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryable {
		if strings.Contains(msg, p) {
			return false
		}
	}
	return true
}
