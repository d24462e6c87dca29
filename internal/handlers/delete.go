package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// deleteBody is the JSON shape of a /delete request.
type deleteBody struct {
	Path string `json:"path"`
}

// handleDelete decodes {"path": "..."}, joins it with webRoot/upload,
// and removes the target if it is a regular file. Paths that traverse
// out of the upload directory are rejected.
func handleDelete(webRoot string, body []byte) (httpmsg.Response, error) {
	var db deleteBody
	if err := json.Unmarshal(body, &db); err != nil {
		return httpmsg.Response{}, fmt.Errorf("%w: decoding delete body: %v", httperr.ErrParseRequest, err)
	}
	if db.Path == "" {
		return httpmsg.Response{}, fmt.Errorf("%w: missing path field", httperr.ErrParseRequest)
	}

	dstDir := filepath.Join(webRoot, uploadDir)
	target, err := safeJoin(dstDir, db.Path)
	if err != nil {
		return httpmsg.Response{}, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}
	if !info.Mode().IsRegular() {
		return httpmsg.Response{}, fmt.Errorf("%w: %q is not a regular file", httperr.ErrPathNotFound, db.Path)
	}

	if err := os.Remove(target); err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}

	resp := httpmsg.Response{Status: 200, Body: []byte("{}")}
	resp.Set("Content-Type", "application/json")
	resp.ContentLength()
	return resp, nil
}
