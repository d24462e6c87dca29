package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/detailyang/go-fallocate"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// uploadDir is the target/source directory for uploads and deletes,
// relative to the web root.
const uploadDir = "upload"

// handleUpload parses a multipart/form-data body, enforces
// bodySizeLimit, writes the first file part found to
// webRoot/upload/{filename}, then responds with a listing of that
// directory.
func handleUpload(webRoot string, req *httpmsg.Request, bodySizeLimit int64, debugLogger *log.Logger) (httpmsg.Response, error) {
	if int64(len(req.Body)) > bodySizeLimit {
		return httpmsg.Response{}, fmt.Errorf("%w: body of %d bytes exceeds limit %d", httperr.ErrPayloadOverflow, len(req.Body), bodySizeLimit)
	}

	ct, ok := req.Headers.Get("Content-Type")
	if !ok || !strings.HasPrefix(ct, "multipart/form-data;") {
		return httpmsg.Response{}, fmt.Errorf("%w: Content-Type %q is not multipart/form-data", httperr.ErrParseRequest, ct)
	}

	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return httpmsg.Response{}, fmt.Errorf("%w: parsing Content-Type: %v", httperr.ErrParseRequest, err)
	}
	boundary, ok := params["boundary"]
	if !ok {
		return httpmsg.Response{}, fmt.Errorf("%w: missing multipart boundary", httperr.ErrParseRequest)
	}

	mr := multipart.NewReader(bytes.NewReader(req.Body), boundary)

	var filename string
	var content []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return httpmsg.Response{}, fmt.Errorf("%w: reading multipart part: %v", httperr.ErrParseRequest, err)
		}

		if part.FileName() == "" {
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return httpmsg.Response{}, fmt.Errorf("%w: reading part body: %v", httperr.ErrParseRequest, err)
		}

		filename = part.FileName()
		content = data
		break
	}

	if filename == "" {
		return httpmsg.Response{}, fmt.Errorf("%w: no file part found in multipart body", httperr.ErrParseRequest)
	}

	dstDir := filepath.Join(webRoot, uploadDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return httpmsg.Response{}, err
	}

	dstPath, err := safeJoin(dstDir, filepath.Base(filename))
	if err != nil {
		return httpmsg.Response{}, err
	}

	if err := writeUploadedFile(dstPath, content, debugLogger); err != nil {
		return httpmsg.Response{}, err
	}

	return renderListing(webRoot, "/"+uploadDir, dstDir, true)
}

// writeUploadedFile preallocates the destination file to len(content)
// via fallocate(2) before writing it. Platforms and filesystems that
// reject fallocate are tolerated; it is a performance hint, not a
// correctness requirement.
func writeUploadedFile(dstPath string, content []byte, debugLogger *log.Logger) error {
	f, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return classifyFSError(err)
	}
	defer f.Close()

	if len(content) > 0 {
		if err := fallocate.Fallocate(f, 0, int64(len(content))); err != nil && debugLogger != nil {
			debugLogger.Printf("fallocate(%s, %d bytes): %v (ignored)", dstPath, len(content), err)
		}
	}

	if _, err := f.Write(content); err != nil {
		return err
	}
	return nil
}
