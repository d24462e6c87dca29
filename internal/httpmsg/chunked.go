package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

// Dechunk decodes an HTTP chunked-transfer-coded body: repeatedly read
// a CRLF-terminated ASCII hex size line, then that many bytes, then a
// trailing CRLF; stop at size 0. Trailer headers are not supported.
func Dechunk(body []byte) ([]byte, error) {
	r := bufio.NewReader(strings.NewReader(string(body)))
	var out []byte

	for {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: reading chunk size: %v", httperr.ErrParseRequest, err)
		}
		sizeLine = strings.TrimRight(sizeLine, "\r\n")
		// Ignore any chunk extensions after ';'.
		if i := strings.IndexByte(sizeLine, ';'); i >= 0 {
			sizeLine = sizeLine[:i]
		}

		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("%w: invalid chunk size %q", httperr.ErrParseRequest, sizeLine)
		}
		if size == 0 {
			break
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("%w: reading chunk body: %v", httperr.ErrParseRequest, err)
		}
		out = append(out, chunk...)

		trailer := make([]byte, 2)
		if _, err := io.ReadFull(r, trailer); err != nil || string(trailer) != "\r\n" {
			return nil, fmt.Errorf("%w: missing chunk trailer CRLF", httperr.ErrParseRequest)
		}
	}

	return out, nil
}
