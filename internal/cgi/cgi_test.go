package cgi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aksel-webserv/webserv/internal/httperr"
)

func writeScript(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestInvokeEchoesEnvAndBody(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "echo.sh", "#!/bin/sh\necho \"name=$SCRIPT_NAME\"\ncat\n")

	resp, err := Invoke(context.Background(), "/bin/sh", script, "echo.sh", []byte("payload"), time.Second)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	body := string(resp.Body)
	if !strings.Contains(body, "name=echo.sh") {
		t.Errorf("body = %q, want SCRIPT_NAME echoed", body)
	}
	if !strings.Contains(body, "payload") {
		t.Errorf("body = %q, want stdin echoed back", body)
	}
}

func TestInvokeNonzeroExitIsCGIFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "fail.sh", "#!/bin/sh\nexit 1\n")

	_, err := Invoke(context.Background(), "/bin/sh", script, "fail.sh", nil, time.Second)
	if !errors.Is(err, httperr.ErrCGIFailure) {
		t.Errorf("Invoke of failing script: err = %v, want ErrCGIFailure", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "slow.sh", "#!/bin/sh\nsleep 5\n")

	_, err := Invoke(context.Background(), "/bin/sh", script, "slow.sh", nil, 50*time.Millisecond)
	if !errors.Is(err, httperr.ErrCGIFailure) {
		t.Errorf("Invoke of slow script: err = %v, want ErrCGIFailure", err)
	}
}

func TestInvokeDefaultTimeoutAppliedWhenNonPositive(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "quick.sh", "#!/bin/sh\necho ok\n")

	resp, err := Invoke(context.Background(), "/bin/sh", script, "quick.sh", nil, 0)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(string(resp.Body), "ok") {
		t.Errorf("body = %q, want ok", resp.Body)
	}
}
