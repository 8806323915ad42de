package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single failure kind returned by Client. Status is zero when
// the request never produced a response.
type Error struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("remote: %s %s: %v", e.Method, e.Path, e.Err)
	case e.Body != "":
		return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("remote: %s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	default:
		return fmt.Sprintf("remote: %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err is a remote error without a response.
func IsTransport(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Status == 0
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var re *Error
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
