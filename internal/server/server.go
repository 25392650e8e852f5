// Package server implements the HTTP server that exposes the campaign
// advisor via a small JSON API, plus health, readiness, and Prometheus
// metrics endpoints. The server is started by the `givetide serve` CLI
// command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/givetide/givetide-go/internal/advisor"
	"github.com/givetide/givetide-go/internal/index"
	"github.com/givetide/givetide-go/internal/logging"
)

// New constructs a Server from the provided advisor and config.
// Metrics are registered against reg; pass prometheus.NewRegistry() in
// tests to stay hermetic.
func New(adv adviser, cfg *Config, reg *prometheus.Registry) (*Server, error) {
	if adv == nil {
		return nil, fmt.Errorf("server: advisor must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Detailed-tier generation can take a while.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		adviser: adv,
		cfg:     cfg,
		log:     cfg.Logger,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(reg),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not configured, authentication disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/advise",
		authMiddleware(cfg.APIKey, rl.middleware(http.HandlerFunc(s.handleAdvise))))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, s.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("givetide server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleAdvise handles POST /api/advise requests.
func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.metrics.adviseInFlight.Inc()
	defer s.metrics.adviseInFlight.Dec()

	var req adviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishAdvise(w, start, "bad_request", http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		s.finishAdvise(w, start, "bad_request", http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	res, err := s.adviser.Advise(r.Context(), advisor.Request{
		Query:              req.Query,
		Fast:               req.Fast,
		DisableEnhancement: req.NoEnhance,
		TopK:               req.TopK,
	})
	if err != nil {
		log := logging.FromContext(r.Context())
		switch {
		case errors.Is(err, index.ErrIndexNotFound):
			s.finishAdvise(w, start, "not_initialized", http.StatusServiceUnavailable,
				errorResponse{Error: "index not built, run `givetide init` first"})
		default:
			var ge *advisor.GenerationError
			if errors.As(err, &ge) {
				log.Error("advise: generation failed",
					slog.String("tier", string(ge.Tier)), slog.Any("error", err))
				s.finishAdvise(w, start, "error", http.StatusBadGateway,
					errorResponse{Error: "advice generation failed"})
				return
			}
			log.Error("advise: request failed", slog.Any("error", err))
			s.finishAdvise(w, start, "error", http.StatusInternalServerError,
				errorResponse{Error: "internal error"})
		}
		return
	}

	s.finishAdvise(w, start, "ok", http.StatusOK, adviseResponse{
		Advice:     res.Advice,
		References: res.References,
		Tier:       string(res.Tier),
	})
}

// finishAdvise records metrics and writes the JSON response for one advise
// request.
func (s *Server) finishAdvise(w http.ResponseWriter, start time.Time, outcome string, status int, body any) {
	s.metrics.adviseRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.adviseDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("advise: encode response", slog.Any("error", err))
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
