// Package api is the HTTP boundary: routing, request decoding, and the
// JSON rendering of the error taxonomy.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/niisara/poc-azure-assistant/internal/metrics"
)

// Router dispatches on exact method and path. The endpoint surface is a
// fixed, flat set of /api routes, so a method:path map is all the routing
// this service needs.
type Router struct {
	routes  map[string]http.HandlerFunc // key = METHOD:PATH
	paths   map[string]bool
	log     *slog.Logger
	metrics metrics.Backend
}

// NewRouter returns an empty router. Every request is logged with method,
// path, status and duration, and counted in the request metrics.
func NewRouter(log *slog.Logger, m metrics.Backend) *Router {
	return &Router{
		routes:  map[string]http.HandlerFunc{},
		paths:   map[string]bool{},
		log:     log,
		metrics: m,
	}
}

func (r *Router) register(method, path string, h http.HandlerFunc) {
	r.routes[method+":"+path] = h
	r.paths[path] = true
}

// GET registers a handler for GET requests on path.
func (r *Router) GET(path string, h http.HandlerFunc) { r.register(http.MethodGet, path, h) }

// POST registers a handler for POST requests on path.
func (r *Router) POST(path string, h http.HandlerFunc) { r.register(http.MethodPost, path, h) }

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(lrw, req)
	} else if r.paths[req.URL.Path] {
		http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
	} else {
		http.Error(lrw, "Not Found", http.StatusNotFound)
	}

	duration := time.Since(start)
	r.log.Info("request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", lrw.status,
		"duration", duration,
	)
	r.metrics.IncCounter(metrics.APIRequestsTotal, 1, metrics.Labels{
		"endpoint": req.URL.Path,
		"status":   strconv.Itoa(lrw.status),
	})
}

// statusRecorder captures the status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
