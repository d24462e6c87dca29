package handlers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderErrorPageCustomPage(t *testing.T) {
	root := t.TempDir()
	customPath := filepath.Join(root, "custom404.html")
	if err := os.WriteFile(customPath, []byte("custom not found"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resp := renderErrorPage(root, 404, customPath)
	if resp.Status != 404 {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
	if string(resp.Body) != "custom not found" {
		t.Errorf("Body = %q, want custom content", resp.Body)
	}
}

func TestRenderErrorPageDefaultTemplate(t *testing.T) {
	root := t.TempDir()
	tpl := "<html>{{status_code}} {{message}}</html>"
	if err := os.WriteFile(filepath.Join(root, defaultErrorTemplate), []byte(tpl), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	resp := renderErrorPage(root, 404, "")
	if resp.Status != 404 {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
	if !strings.Contains(string(resp.Body), "404") || !strings.Contains(string(resp.Body), "Not Found") {
		t.Errorf("Body = %q, want substituted placeholders", resp.Body)
	}
}

func TestRenderErrorPageMinimalFallback(t *testing.T) {
	root := t.TempDir()
	resp := renderErrorPage(root, 500, "")
	if resp.Status != 500 {
		t.Errorf("Status = %d, want 500", resp.Status)
	}
	if string(resp.Body) != minimalFallback {
		t.Errorf("Body = %q, want minimal fallback", resp.Body)
	}
}
