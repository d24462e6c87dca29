package httpmsg

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// HeaderField is one (name, value) pair. Response headers are kept as
// an ordered sequence rather than a map because Set-Cookie may
// legitimately repeat.
type HeaderField struct {
	Name  string
	Value string
}

// Response is the structured form the handlers build and the builder
// serializes to wire bytes.
type Response struct {
	Status  int
	Headers []HeaderField
	Body    []byte
}

// Set appends a header field. Repeated calls with the same name append
// multiple fields rather than overwrite, matching Set-Cookie semantics.
func (r *Response) Set(name, value string) {
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
}

// ContentLength sets Content-Length to len(r.Body). Callers that set
// the body directly should call this before Write.
func (r *Response) ContentLength() {
	r.Set("Content-Length", strconv.Itoa(len(r.Body)))
}

var phrases = map[int]string{
	200: "OK",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

// Phrase returns the reason phrase for status, or "Unknown".
func Phrase(status int) string {
	if p, ok := phrases[status]; ok {
		return p
	}
	return "Unknown"
}

// Write serializes r as wire bytes: status line, headers, blank line,
// body.
func (r Response) Write() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, Phrase(r.Status))
	for _, h := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)
	return buf.Bytes()
}

// ApplyConnectionHeaders appends the Connection/Keep-Alive headers the
// reactor decides on after the handler has produced the response.
func (r *Response) ApplyConnectionHeaders(keepAlive bool) {
	if keepAlive {
		r.Set("Connection", "keep-alive")
		r.Set("Keep-Alive", "timeout=5, max=100")
	} else {
		r.Set("Connection", "close")
	}
}

var mimeBySuffix = map[string]string{
	"css":  "text/css",
	"js":   "application/javascript",
	"html": "text/html",
	"htm":  "text/html",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"txt":  "text/plain",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// MIMEForPath infers a Content-Type from a path's extension. Unknown
// extensions fall back to application/octet-stream.
func MIMEForPath(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if m, ok := mimeBySuffix[strings.ToLower(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}
