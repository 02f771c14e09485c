package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrServiceUnavailable covers transport failures, timeouts, throttling
	// and 5xx answers.
	ErrServiceUnavailable = errors.New("extraction service unavailable")
	// ErrServiceError means the service answered but the answer is an
	// error, empty or blocked.
	ErrServiceError = errors.New("extraction service error")
	// ErrUnsupportedDocument is returned when a provider cannot accept a
	// document's type.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// classify maps a raw SDK error onto the taxonomy. status is the last HTTP
// status observed for the call, 0 if none.
func classify(status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrServiceError) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%w: status %d: %w", ErrServiceUnavailable, status, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrServiceError, err)
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
