package tmdb

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every transport failure and non-2xx answer.
	ErrUnavailable = errors.New("metadata provider unavailable")
	// ErrMalformedPayload means the provider answered 2xx with a body that
	// lacks required fields.
	ErrMalformedPayload = errors.New("metadata provider: malformed payload")
)

// UnavailableError carries the failing endpoint and, when the provider did
// answer, its status code and a body excerpt.
type UnavailableError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return ErrUnavailable.Error()
	}
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("tmdb %s: status %d: %s", e.Op, e.StatusCode, e.Body)
		}
		return fmt.Sprintf("tmdb %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("tmdb %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func malformed(what string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(what, args...))
}
