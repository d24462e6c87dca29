// Package config decodes the JSON configuration file into the typed
// records the rest of the core operates on.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
)

// DefaultBodySizeLimit is used when a ServerConfig omits body_size_limit.
const DefaultBodySizeLimit int64 = 1 << 20 // 1 MiB

// RouteConfig is the policy for one exact request path.
type RouteConfig struct {
	AcceptedMethods  []string `json:"accepted_methods,omitempty"`
	Redirection      string   `json:"redirection,omitempty"`
	DefaultFile      string   `json:"default_file,omitempty"`
	CGIInterpreter   string   `json:"cgi_interpreter,omitempty"`
	DirectoryListing bool     `json:"directory_listing,omitempty"`

	// RequireSession gates this route behind a valid session cookie.
	// Optional; defaults to false (no session enforcement).
	RequireSession bool `json:"require_session,omitempty"`
}

// AllowsMethod reports whether m is permitted on this route. An empty
// AcceptedMethods list is treated as "no restriction", matching routes
// that never specify the field.
func (r RouteConfig) AllowsMethod(m string) bool {
	if len(r.AcceptedMethods) == 0 {
		return true
	}
	for _, am := range r.AcceptedMethods {
		if strings.EqualFold(am, m) {
			return true
		}
	}
	return false
}

// ServerConfig is one logical server: a name, bind address, the ports
// it listens on, its route table and error pages.
type ServerConfig struct {
	Name       string                 `json:"name"`
	BindAddr   string                 `json:"bind_addr"`
	Ports      []string               `json:"ports"`
	Routes     map[string]RouteConfig `json:"routes"`
	ErrorPages map[int]string         `json:"error_pages,omitempty"`

	// BodySizeLimit, nil unless explicitly configured, falls back to
	// DefaultBodySizeLimit.
	BodySizeLimit *int64 `json:"body_size_limit,omitempty"`
}

// EffectiveBodySizeLimit returns the configured cap or the default.
func (s ServerConfig) EffectiveBodySizeLimit() int64 {
	if s.BodySizeLimit != nil {
		return *s.BodySizeLimit
	}
	return DefaultBodySizeLimit
}

// File is the top-level shape of the configuration file.
type File struct {
	Servers []ServerConfig `json:"servers"`
}

// Load reads and decodes the configuration file at path. Errors here
// are fatal to startup.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return &f, nil
}

// Dedup removes servers whose (name, bind_addr:port) tuple repeats an
// earlier entry, logging each drop through logf rather than aborting
// startup.
func (f *File) Dedup(logf func(format string, args ...interface{})) {
	seen := make(map[string]bool)
	var kept []ServerConfig

	for _, srv := range f.Servers {
		dup := false
		for _, port := range srv.Ports {
			key := srv.Name + "@" + srv.BindAddr + ":" + port
			if seen[key] {
				dup = true
				if logf != nil {
					logf("duplicate server/bind tuple %s, ignoring", key)
				}
				break
			}
		}
		if dup {
			continue
		}
		for _, port := range srv.Ports {
			seen[srv.Name+"@"+srv.BindAddr+":"+port] = true
		}
		kept = append(kept, srv)
	}

	f.Servers = kept
}

// UnresolvedHostnames returns the configured server names that do not
// resolve via the system resolver, so the operator can be told to add
// them to /etc/hosts instead of the core mutating that file itself.
func (f *File) UnresolvedHostnames() []string {
	var out []string
	for _, srv := range f.Servers {
		if srv.Name == "" {
			continue
		}
		if _, err := net.LookupHost(srv.Name); err != nil {
			out = append(out, srv.Name)
		}
	}
	return out
}
