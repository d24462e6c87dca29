// Command webserv runs an HTTP/1.1 origin server: a single-threaded,
// edge-triggered reactor dispatching requests through a
// configuration-driven routing table.
package main

import (
	"flag"
	"log"
	"net"
	"os"

	"github.com/aksel-webserv/webserv/internal/cgi"
	"github.com/aksel-webserv/webserv/internal/config"
	"github.com/aksel-webserv/webserv/internal/handlers"
	"github.com/aksel-webserv/webserv/internal/reactor"
	"github.com/aksel-webserv/webserv/internal/routing"
	"github.com/aksel-webserv/webserv/internal/session"
)

var fConfig = flag.String("config", "config.json", "Path to the JSON configuration file.")
var fWebRoot = flag.String("web_root", "./public", "Path to the web root.")
var fDebug = flag.Bool("debug", false, "Enable debug logging.")

func main() {
	flag.Parse()

	var debugLogger *log.Logger
	if *fDebug {
		debugLogger = log.New(os.Stderr, "webserv: debug: ", 0)
	}
	errorLogger := log.New(os.Stderr, "webserv: error: ", 0)

	file, err := config.Load(*fConfig)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	file.Dedup(func(format string, args ...interface{}) {
		errorLogger.Printf(format, args...)
	})

	reportUnresolvedHostnames(file, errorLogger)

	listenerFDs, fdsByServer, listeners, listenerFiles := bindAll(file.Servers, errorLogger)
	defer closeAll(listeners, listenerFiles)

	registry := routing.NewRegistry(file.Servers, fdsByServer)

	service := &handlers.Service{
		Registry:    registry,
		Sessions:    session.NewStore(),
		WebRoot:     *fWebRoot,
		CGITimeout:  cgi.DefaultTimeout,
		DebugLogger: debugLogger,
		ErrorLogger: errorLogger,
	}

	r, err := reactor.New(listenerFDs, service, debugLogger, errorLogger)
	if err != nil {
		log.Fatalf("creating reactor: %v", err)
	}
	defer r.Close()

	log.Printf("webserv listening on %d socket(s)", len(listenerFDs))
	if err := r.Run(); err != nil {
		log.Fatalf("reactor: %v", err)
	}
}

// bindAll binds every port of every configured server, logging and
// skipping (not aborting) any individual bind failure so one bad
// server config doesn't prevent the others from starting.
//
// reactor.Listen's fd is a dup held open by the returned *os.File, not by
// the *net.TCPListener; listenerFiles must be retained for as long as
// the fds stay registered with epoll, or the dup's finalizer closes the
// fd out from under the reactor.
func bindAll(servers []config.ServerConfig, errorLogger *log.Logger) (fds []int, fdsByServer [][]int, listeners []*net.TCPListener, listenerFiles []*os.File) {
	fdsByServer = make([][]int, len(servers))

	for i, srv := range servers {
		for _, port := range srv.Ports {
			fd, ln, f, err := reactor.Listen(srv.BindAddr, port)
			if err != nil {
				errorLogger.Printf("binding %s %s:%s: %v", srv.Name, srv.BindAddr, port, err)
				continue
			}
			fds = append(fds, fd)
			fdsByServer[i] = append(fdsByServer[i], fd)
			listeners = append(listeners, ln)
			listenerFiles = append(listenerFiles, f)
		}
	}

	return fds, fdsByServer, listeners, listenerFiles
}

func closeAll(listeners []*net.TCPListener, listenerFiles []*os.File) {
	for _, f := range listenerFiles {
		f.Close()
	}
	for _, ln := range listeners {
		ln.Close()
	}
}

// reportUnresolvedHostnames prints the /etc/hosts line an operator
// should add for each configured hostname that does not resolve
// locally. The server never edits that file itself.
func reportUnresolvedHostnames(file *config.File, errorLogger *log.Logger) {
	for _, name := range file.UnresolvedHostnames() {
		errorLogger.Printf("hostname %q does not resolve locally; add a line like "+
			"\"127.0.0.1 %s\" to /etc/hosts if you want to reach it by name", name, name)
	}
}
