package presenciales

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the poll does not exist.
	ErrNotFound = errors.New("presenciales: poll not found")
	// ErrOptionNotFound is returned when the option is not part of the poll.
	ErrOptionNotFound = errors.New("presenciales: option not found")
	// ErrOptionInvalid is returned when the option breaks the day/time rules.
	ErrOptionInvalid = errors.New("presenciales: option is outside the allowed days or hours")
	// ErrNoValidOptions is returned when every candidate option was dropped.
	ErrNoValidOptions = errors.New("presenciales: at least one valid option is required")
	// ErrPollClosed is returned when voting on a closed poll.
	ErrPollClosed = errors.New("presenciales: poll is closed")
	// ErrAlreadyClosed is returned when closing a poll twice.
	ErrAlreadyClosed = errors.New("presenciales: poll is already closed")
	// ErrNotEligible is returned when the voter fails the eligibility rules.
	ErrNotEligible = errors.New("presenciales: user is not eligible to vote in this poll")
	// ErrVoteInFlight is returned while another vote of the same user on the same poll is pending.
	ErrVoteInFlight = errors.New("presenciales: a vote for this poll is already being processed")
	// ErrExportNotReady is returned when a poll has no uploaded results export yet.
	ErrExportNotReady = errors.New("presenciales: results export not available yet")
	// ErrExportsDisabled is returned when object storage is not configured.
	ErrExportsDisabled = errors.New("presenciales: exports are disabled")
)

// ValidationError captures field level issues callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
