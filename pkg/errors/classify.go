package errors

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
)

// Class is the control decision for an iteration-level error.
type Class int

const (
	// ClassFatal aborts the run immediately, no retry.
	ClassFatal Class = iota
	// ClassRetryable triggers a backoff followed by a traversal restart.
	ClassRetryable
	// ClassNotFound aborts the run immediately; the profile or its content
	// is gone and retrying cannot recover within this run.
	ClassNotFound
)

func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassNotFound:
		return "not_found"
	default:
		return "fatal"
	}
}

// waitMessage matches the throttling message Instagram embeds in error
// bodies when a client is asked to slow down.
var waitMessage = regexp.MustCompile(`(?i)please wait a few minutes`)

// Classify maps an iteration-level error to a control decision. The mapping
// is kept in one place so it can follow the Media Source's error model if
// that changes.
//
// Retryable: network/connection errors, malformed-request (400) responses,
// forbidden (403) responses, rate limiting (429 or a wait message), and
// server errors. Not found: 404-class errors. Everything else is fatal.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case ErrorTypeNotFound:
			return ClassNotFound
		case ErrorTypeNetwork, ErrorTypeBadRequest, ErrorTypeForbidden,
			ErrorTypeRateLimit, ErrorTypeServerError:
			return ClassRetryable
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassRetryable
	}

	msg := strings.ToLower(err.Error())
	if waitMessage.MatchString(msg) ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") {
		return ClassRetryable
	}

	return ClassFatal
}
