package handlers

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

// safeJoin joins root with a request-supplied relative path, rejecting
// absolute paths and any ".." segment that would escape root. The same
// guard applies to static serving, upload, and delete.
func safeJoin(root, requestPath string) (string, error) {
	if filepath.IsAbs(requestPath) {
		return "", fmt.Errorf("%w: absolute path %q", httperr.ErrPathTraversal, requestPath)
	}

	clean := filepath.Clean(requestPath)
	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes web root", httperr.ErrPathTraversal, requestPath)
		}
	}

	joined := filepath.Join(root, clean)
	return joined, nil
}

// decodePath URL-decodes a request path before filesystem lookup.
func decodePath(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable path %q", httperr.ErrParseRequest, p)
	}
	return decoded, nil
}
