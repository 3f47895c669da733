package fileserver

import (
	"errors"
	"net/http"
)

// Errors reported by Resolve and Respond. Each maps to a single HTTP status
// through StatusCode; none of them ever outlives the request that produced it.
var (
	// ErrMalformedPath is returned when the request path has invalid
	// percent-encoding or contains a NUL byte.
	ErrMalformedPath = errors.New("malformed request path")
	// ErrOutsideRoot is returned when a path, or the target of a symbolic
	// link, would resolve outside of the root directory.
	ErrOutsideRoot = errors.New("path escapes the root directory")
	// ErrNotFound is returned when no file or directory matches the path.
	ErrNotFound = errors.New("no such file or directory")
	// ErrUnsupportedType is returned for targets which are neither regular
	// files nor directories (devices, sockets, named pipes).
	ErrUnsupportedType = errors.New("cannot determine file type")
	// ErrMethodNotAllowed is returned for any method other than GET or HEAD.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// StatusCode maps an error returned by the handler to the HTTP status code
// sent to the client. Unknown errors are server errors.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedPath):
		return http.StatusBadRequest
	case errors.Is(err, ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedType):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// describe returns the short explanation shown on error pages. It never
// includes the error text itself, which may contain filesystem paths.
func describe(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPath):
		return "The request path is not a valid URL path."
	case errors.Is(err, ErrOutsideRoot):
		return "The requested path is outside of the served directory."
	case errors.Is(err, ErrUnsupportedType):
		return "The requested path is not a regular file or directory."
	case errors.Is(err, ErrNotFound):
		return "The requested file or directory does not exist."
	case errors.Is(err, ErrMethodNotAllowed):
		return "Only GET and HEAD requests are supported."
	default:
		return "The server failed to read the requested path."
	}
}
