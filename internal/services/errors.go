package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIO            = errors.New("io error")
	ErrContainer     = errors.New("container decoding error")
	ErrPalette       = errors.New("palette error")
	ErrPayload       = errors.New("payload parsing error")
	ErrTruncated     = errors.New("truncated payload")
	ErrConfiguration = errors.New("configuration error")
	ErrCache         = errors.New("cache error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to a stable short classification used in structured logs
// and JSON output. Unclassified errors report "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrPalette):
		return "palette"
	case errors.Is(err, ErrContainer):
		return "container"
	case errors.Is(err, ErrPayload):
		return "payload"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrCache):
		return "cache"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "decode failure"
	}
	return strings.Join(parts, ": ")
}
