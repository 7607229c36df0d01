package planner

import (
	"errors"
	"fmt"
)

// ErrGenerationInProgress is returned when a generation for the same day is
// already running.
var ErrGenerationInProgress = errors.New("generation already in progress for this day")

// ContextUnavailableError means the persona or preference context required to
// build the prompt could not be assembled. Generation aborts immediately.
type ContextUnavailableError struct {
	Missing string
}

func (e *ContextUnavailableError) Error() string {
	return fmt.Sprintf("generation context unavailable: missing %s", e.Missing)
}

// InvalidParametersError means caller-supplied input (custom directive, day,
// tuning values) was rejected before any model call.
type InvalidParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// MalformedResponseError means the model reply could not be turned into
// schedule drafts. The raw text is kept for diagnostics, truncated by the
// caller before logging.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

// IsMalformed reports whether err is a parse failure of the model reply.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
