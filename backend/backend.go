// Package backend implements the reference backend used behind the
// balancer under test. For any request it responds with a JSON body
// carrying a stable backend identifier and a monotonically increasing
// request counter, so the harness can attribute every response to one
// backend instance.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	lbnet "github.com/ultrabalancer/lbcheck/net"
)

// Options configure a Server.
type Options struct {

	// Address to listen on, e.g. ":8081". An empty port picks a
	// free one.
	Address string

	// Name is the backend identifier. When empty, it is derived
	// from the bound port as "server-<port>".
	Name string
}

// Server is one backend instance. Its identifier is stable for the
// lifetime of the instance and unique per bound port.
type Server struct {
	options  Options
	name     string
	served   int64
	listener net.Listener
	server   *http.Server
}

// New creates an unstarted Server.
func New(o Options) *Server {
	if o.Address == "" {
		o.Address = "127.0.0.1:0"
	}

	return &Server{options: o}
}

// Start binds the listener, derives the identifier and serves in the
// background until Shutdown.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.options.Address)
	if err != nil {
		return err
	}

	s.listener = l
	s.name = s.options.Name
	if s.name == "" {
		_, port, _ := net.SplitHostPort(l.Addr().String())
		s.name = "server-" + port
	}

	s.server = &http.Server{Handler: s}
	go func() {
		if err := s.server.Serve(l); err != http.ErrServerClosed {
			log.Errorf("backend %s: %v", s.name, err)
		}
	}()

	log.Infof("backend %s listening on %s", s.name, l.Addr())
	return nil
}

// Shutdown stops the server, waiting for in-flight requests within the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Name returns the backend identifier. Valid after Start.
func (s *Server) Name() string {
	return s.name
}

// Address returns the bound address. Valid after Start.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// URL returns the base URL of the instance. Valid after Start.
func (s *Server) URL() string {
	return "http://" + s.Address()
}

// ServedCount returns how many requests the instance answered.
func (s *Server) ServedCount() int64 {
	return atomic.LoadInt64(&s.served)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt64(&s.served, 1)
	log.Debugf("backend %s: %s %s", s.name, r.Method, r.URL.Path)

	if r.URL.Path == "/health" {
		w.Header().Set(lbnet.IdentityHeader, s.name)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	var response map[string]interface{}
	switch r.URL.Path {
	case "/api/users":
		response = map[string]interface{}{
			"users": []map[string]interface{}{
				{"id": 1, "name": "Alice", "age": 25},
				{"id": 2, "name": "Bob", "age": 30},
				{"id": 3, "name": "Charlie", "age": 35},
			},
			"backend":        s.name,
			"request_number": n,
		}
	case "/api/products":
		response = map[string]interface{}{
			"products": []map[string]interface{}{
				{"id": 1, "name": "Laptop", "price": 999},
				{"id": 2, "name": "Phone", "price": 699},
				{"id": 3, "name": "Tablet", "price": 499},
			},
			"backend":        s.name,
			"request_number": n,
		}
	case "/api/status":
		response = map[string]interface{}{
			"status":          "ok",
			"backend":         s.name,
			"requests_served": n,
		}
	default:
		response = map[string]interface{}{
			"message":        "API Server",
			"backend":        s.name,
			"request_number": n,
			"endpoints":      []string{"/api/users", "/api/products", "/api/status"},
		}
	}

	body, err := json.Marshal(response)
	if err != nil {
		http.Error(w, fmt.Sprintf("marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set(lbnet.IdentityHeader, s.name)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Write(body)
}
