package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

func TestServeStaticReturnsFileWithInferredMIME(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resp, err := serveStatic(root, "/index.html")
	if err != nil {
		t.Fatalf("serveStatic: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "<h1>hi</h1>" {
		t.Errorf("Body = %q", resp.Body)
	}

	var contentType string
	for _, h := range resp.Headers {
		if h.Name == "Content-Type" {
			contentType = h.Value
		}
	}
	if contentType != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", contentType)
	}
}

func TestServeStaticMissingFile(t *testing.T) {
	root := t.TempDir()
	if _, err := serveStatic(root, "/missing.html"); !errors.Is(err, httperr.ErrPathNotFound) {
		t.Errorf("serveStatic on missing file: err = %v, want ErrPathNotFound", err)
	}
}

func TestServeStaticRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := serveStatic(root, "/../../etc/passwd"); !errors.Is(err, httperr.ErrPathTraversal) {
		t.Errorf("serveStatic traversal: err = %v, want ErrPathTraversal", err)
	}
}
