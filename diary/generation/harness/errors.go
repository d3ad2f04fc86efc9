package harness

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited is returned when the upstream limiter has no capacity.
var ErrRateLimited = errors.New("too many generations in flight, try again shortly")

// ValidationError reports a request the caller must fix. No upstream call
// is made when it is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError wraps a failed, timed out or rejected provider call.
type UpstreamError struct {
	Provider string
	Elapsed  time.Duration
	Cause    error

	// detail is the redacted cause text shown to callers.
	detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("error calling %s API after %s: %s", e.Provider, e.Elapsed.Round(time.Millisecond), e.detail)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
