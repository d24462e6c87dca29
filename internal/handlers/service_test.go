package handlers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aksel-webserv/webserv/internal/config"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
	"github.com/aksel-webserv/webserv/internal/routing"
	"github.com/aksel-webserv/webserv/internal/session"
)

func mustParse(t *testing.T, raw string) *httpmsg.Request {
	t.Helper()
	result, needMore, err := httpmsg.TryParse([]byte(raw), true)
	if err != nil {
		t.Fatalf("TryParse: %v", err)
	}
	if needMore {
		t.Fatalf("TryParse reported needMore on a complete request")
	}
	return &result.Request
}

func newTestService(t *testing.T, routes map[string]config.RouteConfig) *Service {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "error.html"), []byte("{{status_code}} {{message}}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	servers := []config.ServerConfig{{Name: "test", BindAddr: "127.0.0.1", Ports: []string{"80"}, Routes: routes}}
	reg := routing.NewRegistry(servers, [][]int{{3}})

	return &Service{
		Registry: reg,
		Sessions: session.NewStore(),
		WebRoot:  root,
	}
}

func TestDispatchUnmatchedRouteFallsBackToStatic(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{})
	if err := os.WriteFile(filepath.Join(svc.WebRoot, "plain.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req := mustParse(t, "GET /plain.txt HTTP/1.1\r\nHost: test\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hi" {
		t.Errorf("Body = %q, want hi", resp.Body)
	}
}

func TestDispatchMethodNotAllowed(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{
		"/form": {AcceptedMethods: []string{"POST"}},
	})

	req := mustParse(t, "GET /form HTTP/1.1\r\nHost: test\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 405 {
		t.Errorf("Status = %d, want 405", resp.Status)
	}
}

func TestDispatchRedirection(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{
		"/old": {AcceptedMethods: []string{"GET"}, Redirection: "/new"},
	})

	req := mustParse(t, "GET /old HTTP/1.1\r\nHost: test\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 301 {
		t.Errorf("Status = %d, want 301", resp.Status)
	}
	loc, _ := firstHeader(resp, "Location")
	if loc != "/new" {
		t.Errorf("Location = %q, want /new", loc)
	}
}

func TestDispatchCreateSessionSetsCookie(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{})

	req := mustParse(t, "POST /create-session HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 302 {
		t.Errorf("Status = %d, want 302", resp.Status)
	}
	cookie, ok := firstHeader(resp, "Set-Cookie")
	if !ok || !strings.HasPrefix(cookie, "session_id=") {
		t.Errorf("Set-Cookie = %q, ok=%v", cookie, ok)
	}
}

func TestDispatchSessionGateRedirectsWithoutCookie(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{
		"/private": {AcceptedMethods: []string{"GET"}, RequireSession: true, DefaultFile: "private.html"},
	})
	if err := os.WriteFile(filepath.Join(svc.WebRoot, "private.html"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req := mustParse(t, "GET /private HTTP/1.1\r\nHost: test\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 302 {
		t.Errorf("Status = %d, want 302", resp.Status)
	}
	loc, _ := firstHeader(resp, "Location")
	if loc != "/session" {
		t.Errorf("Location = %q, want /session", loc)
	}
}

func TestDispatchSessionGateAllowsValidCookie(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{
		"/private": {AcceptedMethods: []string{"GET"}, RequireSession: true, DefaultFile: "private.html"},
	})
	if err := os.WriteFile(filepath.Join(svc.WebRoot, "private.html"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	id := svc.Sessions.Create()

	req := mustParse(t, "GET /private HTTP/1.1\r\nHost: test\r\nCookie: session_id="+id+"\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "secret" {
		t.Errorf("Body = %q, want secret", resp.Body)
	}
}

func TestDispatchErrorPageOnMissingDefaultFile(t *testing.T) {
	svc := newTestService(t, map[string]config.RouteConfig{
		"/broken": {AcceptedMethods: []string{"GET"}, DefaultFile: "does-not-exist.html"},
	})

	req := mustParse(t, "GET /broken HTTP/1.1\r\nHost: test\r\n\r\n")
	resp := svc.Dispatch(context.Background(), req, 3)

	if resp.Status != 404 {
		t.Errorf("Status = %d, want 404", resp.Status)
	}
	if !strings.Contains(string(resp.Body), "404") {
		t.Errorf("Body = %q, want rendered error page", resp.Body)
	}
}

func firstHeader(resp httpmsg.Response, name string) (string, bool) {
	for _, h := range resp.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
