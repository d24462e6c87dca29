// Package cgi spawns the configured interpreter against a script path,
// assembles the fixed CGI environment, writes the (possibly dechunked)
// request body to stdin, and returns stdout as the response body.
package cgi

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// DefaultTimeout bounds the child process wait so a hung script cannot
// stall the reactor forever.
const DefaultTimeout = 30 * time.Second

// Invoke spawns interpreter against scriptPath, writes body to its
// stdin, and returns a 200 response carrying stdout as the body with a
// fixed text/html Content-Type. Headers the script emits are passed
// through in the body verbatim rather than parsed as an RFC 3875
// response envelope.
func Invoke(ctx context.Context, interpreter, scriptPath, scriptName string, body []byte, timeout time.Duration) (httpmsg.Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	absScript, err := filepath.Abs(scriptPath)
	if err != nil {
		return httpmsg.Response{}, fmt.Errorf("%w: resolving script path: %v", httperr.ErrCGIFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interpreter, absScript)
	cmd.Env = []string{
		"CONTENT_LENGTH=" + strconv.Itoa(len(body)),
		"CONTENT_TYPE=application/x-www-form-urlencoded",
		"REQUEST_METHOD=POST",
		"SCRIPT_FILENAME=" + absScript,
		"SCRIPT_NAME=" + scriptName,
	}

	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return httpmsg.Response{}, fmt.Errorf("%w: %v: %s", httperr.ErrCGIFailure, err, stderr.String())
	}

	resp := httpmsg.Response{Status: 200, Body: stdout.Bytes()}
	resp.Set("Content-Type", "text/html")
	resp.ContentLength()
	return resp, nil
}
