// Package routing resolves (listener fd, Host header) to a server's
// route table and policy, and injects the two reserved session routes
// every server carries.
package routing

import (
	"strings"

	"github.com/aksel-webserv/webserv/internal/config"
)

// Server is the resolved, ready-to-serve form of a config.ServerConfig:
// its listener fds plus its route table, error pages, and body cap.
type Server struct {
	Name          string
	ListenerFDs   []int
	Routes        map[string]config.RouteConfig
	ErrorPages    map[int]string
	BodySizeLimit int64
}

// Registry maps server name -> Server and listener fd -> Server.
type Registry struct {
	byName map[string]*Server
	byFD   map[int]*Server
}

// NewRegistry builds a Registry from the decoded config servers. The
// caller supplies fdsByServerIndex (one []int per server, in config
// order) because binding sockets is the reactor's job, not config's.
func NewRegistry(servers []config.ServerConfig, fdsByServerIndex [][]int) *Registry {
	reg := &Registry{
		byName: make(map[string]*Server),
		byFD:   make(map[int]*Server),
	}

	for i, sc := range servers {
		routes := make(map[string]config.RouteConfig, len(sc.Routes)+2)
		for p, rc := range sc.Routes {
			routes[p] = rc
		}
		injectReservedRoutes(routes)

		var fds []int
		if i < len(fdsByServerIndex) {
			fds = fdsByServerIndex[i]
		}

		srv := &Server{
			Name:          sc.Name,
			ListenerFDs:   fds,
			Routes:        routes,
			ErrorPages:    sc.ErrorPages,
			BodySizeLimit: sc.EffectiveBodySizeLimit(),
		}

		reg.byName[strings.ToLower(sc.Name)] = srv
		for _, fd := range fds {
			reg.byFD[fd] = srv
		}
	}

	return reg
}

// injectReservedRoutes adds /session and /create-session if the config
// didn't already define them.
func injectReservedRoutes(routes map[string]config.RouteConfig) {
	if _, ok := routes["/session"]; !ok {
		routes["/session"] = config.RouteConfig{
			AcceptedMethods: []string{"GET"},
			DefaultFile:     "session.html",
		}
	}
	if _, ok := routes["/create-session"]; !ok {
		routes["/create-session"] = config.RouteConfig{
			AcceptedMethods: []string{"POST"},
		}
	}
}

// Resolve matches by Host header first (name, case-insensitive, port
// stripped), else falls back to the server that owns listenerFD, else
// nil (caller falls through to static serving under the web root).
func (r *Registry) Resolve(listenerFD int, hostHeader string) *Server {
	if host := stripPort(hostHeader); host != "" {
		if srv, ok := r.byName[strings.ToLower(host)]; ok {
			return srv
		}
	}
	return r.byFD[listenerFD]
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// Route looks a path up in srv's route table by exact equality, no
// prefix matching or trailing-slash normalization.
func (srv *Server) Route(path string) (config.RouteConfig, bool) {
	rc, ok := srv.Routes[path]
	return rc, ok
}
