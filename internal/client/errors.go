package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when no credentials are configured
	ErrNotAuthenticated = errors.New("ring: no credentials configured")

	// ErrTwoFactorRequired is returned when the account needs a 2fa code
	ErrTwoFactorRequired = errors.New("ring: two-factor code required")
)

// StatusError is a non-2xx response from the vendor API
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the vendor API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 401
}
