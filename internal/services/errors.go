package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrCanceled      = errors.New("canceled")
	ErrInternal      = errors.New("internal error")
)

// markers is ordered so Kind and Detail pick the first match.
var markers = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrExternalTool, "external_tool"},
	{ErrConfiguration, "configuration"},
	{ErrTimeout, "timeout"},
	{ErrCanceled, "canceled"},
	{ErrInternal, "internal"},
}

// Wrap tags err with marker and prefixes "operation: message". A nil marker
// means ErrInternal. Detail recovers the text without the marker.
func Wrap(marker error, operation, message string, err error) error {
	if marker == nil {
		marker = ErrInternal
	}
	detail := joinDetail(operation, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Detail is err's text with a leading marker removed, suitable for showing to
// uploaders or storing on a job.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return strings.TrimPrefix(msg, m.err.Error()+": ")
		}
	}
	return msg
}

// Kind names err's marker for the error_kind log field, or "" when untagged.
func Kind(err error) string {
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return ""
}

func joinDetail(operation, message string) string {
	operation = strings.TrimSpace(operation)
	message = strings.TrimSpace(message)
	switch {
	case operation != "" && message != "":
		return operation + ": " + message
	case operation != "":
		return operation
	case message != "":
		return message
	default:
		return "unknown failure"
	}
}
