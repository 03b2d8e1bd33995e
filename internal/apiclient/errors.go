package apiclient

import (
	"fmt"
	"net/http"
)

// NetworkError reports a failed fetch: either a transport failure or a
// non-success HTTP status.
type NetworkError struct {
	Resource string
	Status   int
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("fetch %s: network response was not ok (%s)", e.Resource, http.StatusText(e.Status))
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpdateError reports a rejected PATCH. Detail carries the server-provided
// message when the response body had one.
type UpdateError struct {
	Resource string
	ID       string
	Status   int
	Detail   string
	Err      error
}

func (e *UpdateError) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Err != nil:
		return fmt.Sprintf("update %s %s: %v", e.Resource, e.ID, e.Err)
	default:
		return fmt.Sprintf("update %s %s failed with status %d", e.Resource, e.ID, e.Status)
	}
}

func (e *UpdateError) Unwrap() error { return e.Err }
