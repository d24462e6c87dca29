package handlers

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

func TestSafeJoinRejectsAbsolutePath(t *testing.T) {
	if _, err := safeJoin("/web/root", "/etc/passwd"); !errors.Is(err, httperr.ErrPathTraversal) {
		t.Errorf("safeJoin with absolute path: err = %v, want ErrPathTraversal", err)
	}
}

func TestSafeJoinRejectsDotDot(t *testing.T) {
	if _, err := safeJoin("/web/root", "../../etc/passwd"); !errors.Is(err, httperr.ErrPathTraversal) {
		t.Errorf("safeJoin with .. segments: err = %v, want ErrPathTraversal", err)
	}
}

func TestSafeJoinAcceptsRelativePath(t *testing.T) {
	got, err := safeJoin("/web/root", "css/site.css")
	if err != nil {
		t.Fatalf("safeJoin returned error: %v", err)
	}
	want := filepath.Join("/web/root", "css/site.css")
	if got != want {
		t.Errorf("safeJoin() = %q, want %q", got, want)
	}
}

func TestDecodePath(t *testing.T) {
	got, err := decodePath("/a%20b")
	if err != nil {
		t.Fatalf("decodePath returned error: %v", err)
	}
	if got != "/a b" {
		t.Errorf("decodePath() = %q, want \"/a b\"", got)
	}
}

func TestDecodePathInvalidEscape(t *testing.T) {
	if _, err := decodePath("/a%"); !errors.Is(err, httperr.ErrParseRequest) {
		t.Errorf("decodePath with bad escape: err = %v, want ErrParseRequest", err)
	}
}
