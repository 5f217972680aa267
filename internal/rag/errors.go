package rag

import (
	"context"
	"errors"
	"net"
)

// IsRetryable reports whether err came from a collaborator call that timed
// out. Such failures are transient and the request may be repeated.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
