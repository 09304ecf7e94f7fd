package client

import (
	"context"
	"errors"
	"strings"
	"syscall"
)

// Classify maps a failure to a short human-readable message. Display
// only: control flow never branches on the result.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "connection timed out"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return "network unreachable"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient resources"), strings.Contains(msg, "too many"):
		return "server at capacity"
	case strings.Contains(msg, "refused"):
		return "connection refused"
	case strings.Contains(msg, "unreachable"):
		return "network unreachable"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "connection timed out"
	}
	return "connection failed"
}
