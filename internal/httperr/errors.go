// Package httperr names the error kinds the core can produce while
// parsing, routing, and handling a request, so callers can switch on
// kind with errors.Is instead of inspecting strings.
package httperr

import "errors"

var (
	// ErrParseRequest indicates malformed request bytes or headers.
	ErrParseRequest = errors.New("malformed request")

	// ErrMethodDisallowed indicates the request method is not in the
	// route's accepted_methods list.
	ErrMethodDisallowed = errors.New("method not allowed")

	// ErrPayloadOverflow indicates a body larger than the configured cap.
	ErrPayloadOverflow = errors.New("payload too large")

	// ErrQueueOverflow indicates a connection's request queue was full.
	ErrQueueOverflow = errors.New("request queue full")

	// ErrPathNotFound indicates a filesystem miss.
	ErrPathNotFound = errors.New("not found")

	// ErrPermission indicates a filesystem EACCES.
	ErrPermission = errors.New("permission denied")

	// ErrCGIFailure indicates a CGI spawn, I/O, or non-zero-exit failure.
	ErrCGIFailure = errors.New("cgi failure")

	// ErrTemplateMissing indicates a page template (such as the
	// directory-listing template) could not be read.
	ErrTemplateMissing = errors.New("error template missing")

	// ErrPathTraversal indicates a request or upload/delete path tried to
	// escape its web root via ".." or an absolute path.
	ErrPathTraversal = errors.New("path traversal rejected")
)

// Status maps an error kind to the HTTP status code the core should
// surface for it. Unrecognized errors map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrParseRequest):
		return 400
	case errors.Is(err, ErrMethodDisallowed):
		return 405
	case errors.Is(err, ErrPayloadOverflow):
		return 413
	case errors.Is(err, ErrQueueOverflow):
		return 503
	case errors.Is(err, ErrPathNotFound):
		return 404
	case errors.Is(err, ErrPermission):
		return 403
	case errors.Is(err, ErrPathTraversal):
		return 400
	case errors.Is(err, ErrCGIFailure):
		return 500
	case errors.Is(err, ErrTemplateMissing):
		return 500
	default:
		return 500
	}
}
