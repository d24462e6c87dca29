package handlers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// serveStatic is the fallback for paths no route owns: read
// webRoot/requestPath (URL-decoded, traversal-checked) and return its
// raw bytes with a Content-Type inferred from the extension.
func serveStatic(webRoot, requestPath string) (httpmsg.Response, error) {
	decoded, err := decodePath(requestPath)
	if err != nil {
		return httpmsg.Response{}, err
	}

	// Request paths are rooted at the web root, not the filesystem root.
	full, err := safeJoin(webRoot, strings.TrimPrefix(decoded, "/"))
	if err != nil {
		return httpmsg.Response{}, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}

	resp := httpmsg.Response{Status: 200, Body: data}
	resp.Set("Content-Type", httpmsg.MIMEForPath(full))
	resp.ContentLength()
	return resp, nil
}

// serveFile serves a single named file already known to be under
// webRoot (used for default_file resolution).
func serveFile(fullPath string) (httpmsg.Response, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}

	resp := httpmsg.Response{Status: 200, Body: data}
	resp.Set("Content-Type", httpmsg.MIMEForPath(fullPath))
	resp.ContentLength()
	return resp, nil
}

// classifyFSError maps a filesystem error to its httperr kind: missing
// file -> 404, EACCES -> 403. Anything else passes through unchanged and
// surfaces as 500 via Status's default case.
func classifyFSError(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", httperr.ErrPathNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", httperr.ErrPermission, err)
	default:
		return err
	}
}
