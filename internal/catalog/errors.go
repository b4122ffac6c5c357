package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the store and facade. Callers match them
// with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrNotFound        = errors.New("media not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("stale record version")
	ErrAlreadyInFlight = errors.New("conversion already in flight")
	ErrUnavailable     = errors.New("catalog store unavailable")
)

// Wrap tags an error with one of the sentinel markers above while
// keeping operation context in the message.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "catalog failure"
	}
	return strings.Join(parts, ": ")
}
