package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for missing or non-public surveys, reports,
// submissions, questions and for malformed page tokens.
var ErrNotFound = errors.New("not found")

// RedirectError asks the caller to send the client elsewhere.
type RedirectError struct {
	URL string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s", e.URL)
}
