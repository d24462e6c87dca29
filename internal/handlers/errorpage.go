package handlers

import (
	"os"
	"strconv"
	"strings"

	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// defaultErrorTemplate is the status-agnostic fallback template path
// relative to webRoot.
const defaultErrorTemplate = "error.html"

// minimalFallback is used when even the default error template cannot
// be read.
const minimalFallback = "<html><body><h1>Internal Server Error</h1></body></html>"

// renderErrorPage resolves the page for an error status: a configured
// custom page is served unmodified if present; otherwise error.html is
// read and has {{status_code}}/{{message}} substituted; otherwise a
// minimal fallback is used.
func renderErrorPage(webRoot string, status int, customPagePath string) httpmsg.Response {
	if customPagePath != "" {
		if data, err := os.ReadFile(customPagePath); err == nil {
			resp := httpmsg.Response{Status: status, Body: data}
			resp.Set("Content-Type", "text/html")
			resp.ContentLength()
			return resp
		}
	}

	tplPath := webRoot + string(os.PathSeparator) + defaultErrorTemplate
	if tpl, err := os.ReadFile(tplPath); err == nil {
		body := strings.NewReplacer(
			"{{status_code}}", strconv.Itoa(status),
			"{{message}}", httpmsg.Phrase(status),
		).Replace(string(tpl))

		resp := httpmsg.Response{Status: status, Body: []byte(body)}
		resp.Set("Content-Type", "text/html")
		resp.ContentLength()
		return resp
	}

	resp := httpmsg.Response{Status: 500, Body: []byte(minimalFallback)}
	resp.Set("Content-Type", "text/html")
	resp.ContentLength()
	return resp
}
