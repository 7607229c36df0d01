package llm

import (
	"context"
	"errors"
	"fmt"
)

// QuotaError means the provider rejected the request for billing or rate
// limit reasons. Retrying would only burn more quota, so callers treat it as
// fatal for the whole attempt.
type QuotaError struct {
	Provider string
	Detail   string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted: %s", e.Provider, e.Detail)
}

// TimeoutError means the request ran out of time. Callers may retry it.
type TimeoutError struct {
	Provider string
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out: %v", e.Provider, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsQuota reports whether err is a provider quota/rate-limit failure.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsTimeout reports whether err is a timeout that may be retried.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
