package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials never says which of email or password was wrong.
	ErrInvalidCredentials = errors.New("Unable to login")
	// ErrInvalidUpdate is returned when an update names a field outside the whitelist.
	ErrInvalidUpdate = errors.New("Invalid Update")
	// ErrUnauthorized is returned for any token that does not resolve to an active session.
	ErrUnauthorized = errors.New("Please authenticate")
)

// ValidationError reports rejected input. Fields maps JSON field names to
// human readable messages and may be empty.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteString(": ")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(e.Fields[name])
	}
	return b.String()
}

func fieldError(message, field, fieldMessage string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string]string{field: fieldMessage}}
}
