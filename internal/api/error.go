package api

import "fmt"

// Error is a non-2xx response from the CI server.
type Error struct {
	Status int
	Path   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d for %s", e.Status, e.Path)
}

// StatusCode reports the HTTP status of the failed request. Callers that
// must not import this package can detect it through an
// interface{ StatusCode() int } assertion.
func (e *Error) StatusCode() int {
	return e.Status
}
