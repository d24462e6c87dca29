package httpmsg

import (
	"errors"
	"testing"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

func TestDechunkSimple(t *testing.T) {
	raw := "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	got, err := Dechunk([]byte(raw))
	if err != nil {
		t.Fatalf("Dechunk: %v", err)
	}
	if string(got) != "Wikipedia" {
		t.Errorf("Dechunk() = %q, want Wikipedia", got)
	}
}

func TestDechunkEmptyBody(t *testing.T) {
	got, err := Dechunk([]byte("0\r\n\r\n"))
	if err != nil {
		t.Fatalf("Dechunk: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Dechunk() = %q, want empty", got)
	}
}

func TestDechunkWithExtension(t *testing.T) {
	raw := "4;foo=bar\r\nWiki\r\n0\r\n\r\n"
	got, err := Dechunk([]byte(raw))
	if err != nil {
		t.Fatalf("Dechunk: %v", err)
	}
	if string(got) != "Wiki" {
		t.Errorf("Dechunk() = %q, want Wiki", got)
	}
}

func TestDechunkMissingTrailer(t *testing.T) {
	raw := "4\r\nWikiXX0\r\n\r\n"
	if _, err := Dechunk([]byte(raw)); !errors.Is(err, httperr.ErrParseRequest) {
		t.Errorf("Dechunk missing trailer: err = %v, want ErrParseRequest", err)
	}
}

func TestDechunkInvalidSize(t *testing.T) {
	if _, err := Dechunk([]byte("notHex\r\n")); !errors.Is(err, httperr.ErrParseRequest) {
		t.Errorf("Dechunk invalid size: err = %v, want ErrParseRequest", err)
	}
}
