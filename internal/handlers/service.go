// Package handlers dispatches parsed requests through the routing
// table to the handler set: static files, directory listings,
// redirects, CGI, multipart upload, and delete. Every failure is
// rendered as an HTTP error response rather than propagated to the
// reactor.
package handlers

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aksel-webserv/webserv/internal/cgi"
	"github.com/aksel-webserv/webserv/internal/config"
	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
	"github.com/aksel-webserv/webserv/internal/routing"
	"github.com/aksel-webserv/webserv/internal/session"
)

// Service is the reactor.Dispatcher implementation wiring the route
// resolver, the handler set, the session gate, and error-page
// rendering together.
type Service struct {
	Registry *routing.Registry
	Sessions *session.Store
	WebRoot  string

	CGITimeout time.Duration

	DebugLogger *log.Logger
	ErrorLogger *log.Logger
}

func (s *Service) debugf(format string, args ...interface{}) {
	if s.DebugLogger != nil {
		s.DebugLogger.Printf(format, args...)
	}
}

// Dispatch implements reactor.Dispatcher. It never returns an error:
// every failure path is rendered as an HTTP status here.
func (s *Service) Dispatch(ctx context.Context, req *httpmsg.Request, listenerFD int) httpmsg.Response {
	host, _ := req.Headers.Get("Host")
	srv := s.Registry.Resolve(listenerFD, host)

	resp, err := s.dispatchInner(ctx, req, srv)
	if err == nil {
		return resp
	}

	status := httperr.Status(err)
	s.debugf("dispatch error for %s %s: %v (status %d)", req.Method, req.Path, err, status)

	var customPage string
	if srv != nil {
		if p, ok := srv.ErrorPages[status]; ok {
			customPage = p
		}
	}
	return renderErrorPage(s.WebRoot, status, customPage)
}

func (s *Service) dispatchInner(ctx context.Context, req *httpmsg.Request, srv *routing.Server) (httpmsg.Response, error) {
	var (
		rc            config.RouteConfig
		matched       bool
		bodySizeLimit = config.DefaultBodySizeLimit
	)

	if srv != nil {
		rc, matched = srv.Route(req.Path)
		bodySizeLimit = srv.BodySizeLimit
	}

	if !matched {
		// No route owns this path: fall through to static serving under
		// the web root.
		return serveStatic(s.WebRoot, req.Path)
	}

	if rc.RequireSession && !session.PublicPaths[req.Path] {
		if resp, blocked := s.sessionGate(req); blocked {
			return resp, nil
		}
	}

	if !rc.AllowsMethod(req.Method) {
		return httpmsg.Response{}, fmt.Errorf("%w: %s not allowed on %s", httperr.ErrMethodDisallowed, req.Method, req.Path)
	}

	switch req.Path {
	case "/upload":
		return handleUpload(s.WebRoot, req, bodySizeLimit, s.DebugLogger)
	case "/delete":
		return handleDelete(s.WebRoot, req.Body)
	case "/create-session":
		return s.createSession(), nil
	}

	switch {
	case rc.DirectoryListing:
		dirPath := filepath.Join(s.WebRoot, req.Path)
		return renderListing(s.WebRoot, req.Path, dirPath, req.Path == "/"+uploadDir)

	case rc.Redirection != "":
		resp := httpmsg.Response{Status: 301}
		resp.Set("Location", rc.Redirection)
		return resp, nil

	default:
		return s.serveDefaultOrCGI(ctx, req, rc)
	}
}

// serveDefaultOrCGI serves a configured default_file (or, when
// cgi_interpreter is set and default_file is empty, a .py/.php leaf
// derived from the request path) statically, or runs it through CGI if
// cgi_interpreter is set.
func (s *Service) serveDefaultOrCGI(ctx context.Context, req *httpmsg.Request, rc config.RouteConfig) (httpmsg.Response, error) {
	scriptName := rc.DefaultFile
	if scriptName == "" && rc.CGIInterpreter != "" {
		base := path.Base(req.Path)
		if ext := path.Ext(base); ext == ".py" || ext == ".php" {
			scriptName = strings.TrimPrefix(req.Path, "/")
		}
	}

	if scriptName == "" {
		return httpmsg.Response{}, fmt.Errorf("%w: route %s has no default_file", httperr.ErrPathNotFound, req.Path)
	}

	fullPath := filepath.Join(s.WebRoot, scriptName)
	if _, err := os.Stat(fullPath); err != nil {
		return httpmsg.Response{}, classifyFSError(err)
	}

	if rc.CGIInterpreter != "" {
		body := req.Body
		if req.IsChunked() {
			dechunked, err := httpmsg.Dechunk(body)
			if err != nil {
				return httpmsg.Response{}, err
			}
			body = dechunked
		}
		resp, err := cgi.Invoke(ctx, rc.CGIInterpreter, fullPath, scriptName, body, s.CGITimeout)
		if err != nil {
			return httpmsg.Response{}, err
		}
		return resp, nil
	}

	return serveFile(fullPath)
}

func (s *Service) createSession() httpmsg.Response {
	id := s.Sessions.Create()
	resp := httpmsg.Response{Status: 302}
	resp.Set("Location", "/")
	resp.Set("Set-Cookie", "session_id="+id+"; Path=/")
	return resp
}

// sessionGate runs the per-request session check for routes opted into
// RequireSession: an absent or invalid cookie redirects to /session; a
// valid one is renewed and the request proceeds (blocked=false).
func (s *Service) sessionGate(req *httpmsg.Request) (httpmsg.Response, bool) {
	id, ok := req.Cookies()["session_id"]
	if !ok {
		return redirectToSession(""), true
	}

	if _, valid := s.Sessions.Touch(id); !valid {
		return redirectToSession(clearCookie()), true
	}

	return httpmsg.Response{}, false
}

func redirectToSession(clearSetCookie string) httpmsg.Response {
	resp := httpmsg.Response{Status: 302}
	resp.Set("Location", "/session")
	if clearSetCookie != "" {
		resp.Set("Set-Cookie", clearSetCookie)
	}
	return resp
}

func clearCookie() string {
	return "session_id=; Path=/; Max-Age=0"
}
