package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Kind classifies an error for retry decisions.
type Kind int

const (
	KindFatal Kind = iota
	KindRateLimited
	KindUnavailable
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "fatal"
	}
}

// ErrMaxRetriesExceeded tags the error returned after the last attempt failed retryably.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns err tagged with kind. A nil err stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Classify determines the Kind for a given error.
// Typed errors win; untyped ones fall back to transport errors and a few
// provider phrases. HTTP statuses are only classified through *Error.
func Classify(err error) Kind {
	if err == nil {
		return KindFatal
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}

	// A transport timeout (e.g. *url.Error wrapping a per-attempt deadline)
	// is worth another attempt. The bare context sentinel is not.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && netErr != error(context.DeadlineExceeded) {
		return KindUnavailable
	}

	// Caller gave up, retrying cannot help
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindFatal
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindUnavailable
	}

	s := strings.ToLower(err.Error())

	if strings.Contains(s, "too many requests") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "quota") || strings.Contains(s, "resource exhausted") {
		return KindRateLimited
	}

	if strings.Contains(s, "service unavailable") || strings.Contains(s, "overloaded") ||
		strings.Contains(s, "connection reset") || strings.Contains(s, "connection refused") {
		return KindUnavailable
	}

	return KindFatal
}
