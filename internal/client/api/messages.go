package api

import (
	"sort"
	"strings"
)

// UserMessage renders err for display. Cancellations render as "" and must
// not be shown at all.
func UserMessage(err error) string {
	if err == nil || IsCanceled(err) {
		return ""
	}

	apiErr, ok := As(err)
	if !ok {
		return err.Error()
	}

	switch {
	case apiErr.IsUnauthorized():
		return SessionExpiredMessage
	case apiErr.IsValidation():
		return validationMessage(apiErr)
	case apiErr.Message() != "":
		return apiErr.Message()
	default:
		return DefaultErrorMessage
	}
}

func validationMessage(e *Error) string {
	fields := e.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(e.Message())
	for _, name := range names {
		b.WriteString("\n  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(fields[name])
	}
	return b.String()
}
