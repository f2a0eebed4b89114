package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"proximity-planner/internal/metrics"
	"proximity-planner/internal/planner"
)

// Options configures the HTTP surface.
type Options struct {
	Listen             string
	CORSOrigin         string
	RateLimit          float64 // requests per second per client IP
	Burst              int
	DefaultThresholdKm float64
}

// Server is the HTTP API over a Planner.
type Server struct {
	planner  *planner.Planner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	opts     Options

	limiters sync.Map // map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// New creates a Server. gatherer serves /metrics and may be nil.
func New(p *planner.Planner, logger *slog.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	return &Server{
		planner:  p,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
		opts:     opts,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/nodes", s.handleNodes).Methods(http.MethodGet)
	api.HandleFunc("/route", s.handleRoute).Methods(http.MethodPost)
	api.HandleFunc("/graph/lines", s.handleGraphLines).Methods(http.MethodGet)
	api.HandleFunc("/graph/geojson", s.handleGraphGeoJSON).Methods(http.MethodGet)

	return s.cors(limitBody(s.rateLimiter(r)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLimiters(ctx, 5*time.Minute, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "listen", s.opts.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cors adds CORS headers to allow frontend requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size to 1 MB on POST.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter limits /api/ requests per client IP.
func (s *Server) rateLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, _ := net.SplitHostPort(r.RemoteAddr)
		if ip == "" {
			ip = r.RemoteAddr
		}

		val, _ := s.limiters.LoadOrStore(ip, &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(s.opts.RateLimit), s.opts.Burst),
		})
		il := val.(*ipLimiter)
		il.mu.Lock()
		il.lastSeen = time.Now()
		il.mu.Unlock()

		if !il.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sweepLimiters drops limiters for clients idle longer than maxIdle.
func (s *Server) sweepLimiters(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiters.Range(func(key, value any) bool {
				il := value.(*ipLimiter)
				il.mu.Lock()
				idle := time.Since(il.lastSeen)
				il.mu.Unlock()
				if idle > maxIdle {
					s.limiters.Delete(key)
				}
				return true
			})
		}
	}
}
