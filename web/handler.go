package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// hitsKey is the shared counter key; every web replica increments the
// same one.
const hitsKey = "hits"

// Counter is the slice of the cache client the handlers need.
type Counter interface {
	IncrWithRetry(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	counter Counter
	logger  *log.Logger
}

// NewHandler builds the HTTP handler for the web service.
func NewHandler(counter Counter, logger *log.Logger) http.Handler {
	h := &Handler{
		counter: counter,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.Hits)
	r.Get("/hello", h.Hello)
	r.Get("/hostname", h.Hostname)
	r.Get("/records", h.Records)
	r.Get("/healthz", h.Health)

	return r
}

// Hits serves the hit-counter page: hostname, address, and how many
// times any replica has been seen.
func (h *Handler) Hits(w http.ResponseWriter, r *http.Request) {
	count, err := h.counter.IncrWithRetry(r.Context(), hitsKey)
	if err != nil {
		h.logger.Printf("hit counter increment failed: %v", err)
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "cache_unavailable"})
		return
	}

	hostname, ip := lookupSelf()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w,
		"Hostname: %s<br/>IP Address: %s<br/>I have been seen %d times.<br/>",
		hostname, ip, count,
	)
}

func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Hello from hitcounter!")
}

func (h *Handler) Hostname(w http.ResponseWriter, r *http.Request) {
	hostname, ip := lookupSelf()
	respondJSON(w, http.StatusOK, HostnameResponse{Hostname: hostname, IP: ip})
}

func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// lookupSelf resolves the container's hostname and address, the same
// pair every replica prints so scaled deployments are tellable apart.
func lookupSelf() (hostname, ip string) {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown", "unknown"
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return hostname, "unknown"
	}
	return hostname, addrs[0]
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
