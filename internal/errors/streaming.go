package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// rePermissionDenied matches the advice the streaming endpoint attaches to
// auth failures, e.g. "403::Handshake denied" or "401::Authentication invalid".
var rePermissionDenied = regexp.MustCompile(`^4(01|03)::`)

// MapTransportError maps transport and streaming-payload errors to AppError instances.
// It handles the common patterns:
// - context timeouts/cancellations → Timeout/Canceled
// - handshake-phase transport errors → HandshakeFailed
// - any other transport-reported error → Transport
//
// If the error is already an AppError it is returned unchanged so codes
// assigned closer to the source survive the trip up the stack.
func MapTransportError(err error, duringHandshake bool) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "streaming connection timed out",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "streaming operation was canceled",
			Cause:   err,
		}
	}

	if duringHandshake {
		return HandshakeFailed(err, "transport handshake failed")
	}
	return Wrap(err, ErrCodeTransport, "transport error")
}

// ClassifyStreamingError maps an error string carried in a streaming payload
// (the "error" field of a /meta reply or a delivered event) to an AppError.
// An empty detail yields nil.
func ClassifyStreamingError(detail string, duringHandshake bool) error {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return nil
	}

	if duringHandshake {
		return HandshakeFailed(errors.New(detail), "transport handshake failed")
	}
	if rePermissionDenied.MatchString(detail) {
		return &AppError{
			Code:    ErrCodeTransport,
			Message: "streaming endpoint rejected the connection",
			Cause:   errors.New(detail),
		}
	}
	return Transport(detail)
}
