package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/givetide/givetide-go/internal/advisor"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full detailed-tier generation.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// adviser is the interface handleAdvise calls to answer a question.
// *advisor.Advisor satisfies it; tests inject a fake.
type adviser interface {
	Advise(ctx context.Context, req advisor.Request) (*advisor.Result, error)
}

// Server is the HTTP server that exposes the campaign advisor.
type Server struct {
	// adviser answers all /api/advise requests.
	adviser adviser
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments for this instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// adviseRequest is the JSON body for POST /api/advise.
type adviseRequest struct {
	// Query is the user's fundraising question.
	Query string `json:"query"`
	// Fast selects the fast model tier.
	Fast bool `json:"fast,omitempty"`
	// NoEnhance skips query enhancement.
	NoEnhance bool `json:"no_enhance,omitempty"`
	// TopK overrides the number of case studies retrieved.
	TopK int `json:"top_k,omitempty"`
}

// adviseResponse is the JSON body returned by POST /api/advise.
type adviseResponse struct {
	Advice     string              `json:"advice"`
	References []advisor.Reference `json:"references"`
	Tier       string              `json:"tier"`
}

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Error string `json:"error"`
}
