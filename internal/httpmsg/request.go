// Package httpmsg implements the wire-level request parser (C2) and
// response builder (C3): bytes in, a structured Request out; a
// structured Response in, bytes out.
package httpmsg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

// Request is the structured form of a parsed HTTP request, owned by the
// parser until handed to the connection's queue.
type Request struct {
	Method     string
	Path       string
	Version    string
	Headers    Header
	Body       []byte
	ListenerFD int
	StreamFD   int
}

// Header is a case-insensitively-queried header map. Duplicate header
// lines: last one wins.
type Header struct {
	values map[string]string // lower(name) -> value
}

func newHeader() Header {
	return Header{values: map[string]string{}}
}

func (h Header) set(name, value string) {
	h.values[strings.ToLower(name)] = value
}

// Get performs a case-insensitive header lookup.
func (h Header) Get(name string) (string, bool) {
	v, ok := h.values[strings.ToLower(name)]
	return v, ok
}

// terminator is the blank-line marker that ends the header block.
const terminator = "\r\n\r\n"

// ParseResult carries a successfully parsed request plus the number of
// bytes of buf it consumed, so the caller can trim its read buffer.
type ParseResult struct {
	Request  Request
	Consumed int
}

// TryParse attempts to parse one HTTP request out of buf. It returns
// (nil, true, nil) when buf does not yet contain a complete request
// (the caller should read more and retry). It returns a non-nil error
// wrapping httperr.ErrParseRequest on malformed input. Pass eof=true
// once the connection has stopped producing bytes, so a missing header
// terminator fails instead of asking for more.
func TryParse(buf []byte, eof bool) (result *ParseResult, needMore bool, err error) {
	idx := bytes.Index(buf, []byte(terminator))
	if idx == -1 {
		if eof {
			return nil, false, fmt.Errorf("%w: unexpected EOF before header terminator", httperr.ErrParseRequest)
		}
		return nil, true, nil
	}

	headerBytes := buf[:idx]
	bodyStart := idx + len(terminator)

	if !utf8.Valid(headerBytes) {
		return nil, false, fmt.Errorf("%w: headers are not valid UTF-8", httperr.ErrParseRequest)
	}

	lines := strings.Split(string(headerBytes), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, false, fmt.Errorf("%w: empty request line", httperr.ErrParseRequest)
	}

	req := Request{Headers: newHeader()}
	if err := parseRequestLine(lines[0], &req); err != nil {
		return nil, false, err
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, false, fmt.Errorf("%w: malformed header line %q", httperr.ErrParseRequest, line)
		}
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, false, fmt.Errorf("%w: invalid header %q", httperr.ErrParseRequest, name)
		}
		req.Headers.set(name, value)
	}

	// A chunked body carries no Content-Length: scan the raw post-header
	// bytes for the terminating zero-size chunk instead, and hand
	// Dechunk the untouched wire bytes.
	if req.IsChunked() {
		bodyLen, needMore, err := chunkedBodyEnd(buf[bodyStart:])
		if err != nil {
			return nil, false, err
		}
		if needMore {
			return nil, true, nil
		}

		need := bodyStart + bodyLen
		req.Body = append([]byte(nil), buf[bodyStart:need]...)
		return &ParseResult{Request: req, Consumed: need}, false, nil
	}

	contentLength := 0
	if cl, ok := req.Headers.Get("Content-Length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("%w: invalid Content-Length %q", httperr.ErrParseRequest, cl)
		}
		contentLength = n
	}

	need := bodyStart + contentLength
	if len(buf) < need {
		return nil, true, nil
	}

	req.Body = append([]byte(nil), buf[bodyStart:need]...)

	return &ParseResult{Request: req, Consumed: need}, false, nil
}

// chunkedBodyEnd scans data (the bytes immediately following the header
// terminator) for the end of a chunked-transfer-coded body: it walks
// each "size\r\n<size bytes>\r\n" chunk without copying, stopping at the
// zero-size chunk's trailing CRLF (no trailer-header support, matching
// Dechunk). It returns the byte length of the body including that final
// CRLF, or needMore=true if data does not yet hold a complete body.
func chunkedBodyEnd(data []byte) (bodyLen int, needMore bool, err error) {
	pos := 0
	for {
		lineEnd := bytes.Index(data[pos:], []byte("\r\n"))
		if lineEnd == -1 {
			return 0, true, nil
		}
		sizeLine := data[pos : pos+lineEnd]
		if i := bytes.IndexByte(sizeLine, ';'); i >= 0 {
			sizeLine = sizeLine[:i]
		}
		size, perr := strconv.ParseInt(strings.TrimSpace(string(sizeLine)), 16, 64)
		if perr != nil || size < 0 {
			return 0, false, fmt.Errorf("%w: invalid chunk size %q", httperr.ErrParseRequest, sizeLine)
		}
		pos += lineEnd + 2

		if size == 0 {
			if len(data) < pos+2 {
				return 0, true, nil
			}
			return pos + 2, false, nil
		}

		need := pos + int(size) + 2
		if len(data) < need {
			return 0, true, nil
		}
		pos = need
	}
}

func parseRequestLine(line string, req *Request) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return fmt.Errorf("%w: malformed request line %q", httperr.ErrParseRequest, line)
	}
	req.Method, req.Path, req.Version = parts[0], parts[1], parts[2]
	if req.Method == "" || req.Path == "" || !strings.HasPrefix(req.Version, "HTTP/") {
		return fmt.Errorf("%w: malformed request line %q", httperr.ErrParseRequest, line)
	}
	return nil
}

// IsChunked reports whether the request carries a chunk-encoded body.
// The Transfer-Encoding check is case-insensitive.
func (r Request) IsChunked() bool {
	te, ok := r.Headers.Get("Transfer-Encoding")
	return ok && strings.EqualFold(strings.TrimSpace(te), "chunked")
}

// KeepAlive resolves the version-dependent connection default: HTTP/1.1
// keeps the connection open unless Connection: close; HTTP/1.0 closes
// it unless Connection: keep-alive.
func (r Request) KeepAlive() bool {
	conn, _ := r.Headers.Get("Connection")
	conn = strings.ToLower(strings.TrimSpace(conn))

	switch r.Version {
	case "HTTP/1.1":
		return conn != "close"
	default:
		return conn == "keep-alive"
	}
}

// Cookies lazily parses the Cookie header into a name->value map:
// split on ';', trim, split each part on the first '='.
func (r Request) Cookies() map[string]string {
	out := map[string]string{}
	raw, ok := r.Headers.Get("Cookie")
	if !ok {
		return out
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}
