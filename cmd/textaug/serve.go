package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fractal-lba/textaug/internal/augment"
	"github.com/fractal-lba/textaug/internal/metrics"
	augotel "github.com/fractal-lba/textaug/pkg/otel"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// Server answers augmentation requests. Strategies share one random source and
// are not safe for concurrent use, so calls are serialised.
type Server struct {
	mu        sync.Mutex
	generator augment.Strategy
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	maxN      int
	logger    *slog.Logger
}

type augmentRequest struct {
	Text string `json:"text"`
	N    int    `json:"n"`
}

type augmentResponse struct {
	Augmented []string `json:"augmented"`
}

// serveCmd runs the HTTP service
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve augmentation over HTTP",
		Long: `Serves POST /v1/augment {"text", "n"} -> {"augmented": [...]}, /metrics and /health.

Environment: PORT (8080), TOKEN_RATE (100 requests/s), MAX_VARIANTS (32),
OTEL_EXPORTER_OTLP_ENDPOINT enables tracing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m := metrics.New()

			d, logger, err := buildDispatcher(ctx, m)
			if err != nil {
				return err
			}

			if endpoint := getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
				cfg := augotel.DefaultConfig("textaug")
				cfg.CollectorEndpoint = endpoint
				cfg.Environment = getEnv("DEPLOY_ENV", cfg.Environment)
				tp, err := augotel.InitTracer(ctx, cfg)
				if err != nil {
					return err
				}
				defer augotel.Shutdown(context.Background(), tp)
			}

			tokenRate := getEnvInt("TOKEN_RATE", 100)
			srv := &Server{
				generator: d,
				metrics:   m,
				limiter:   rate.NewLimiter(rate.Limit(tokenRate), tokenRate*2),
				maxN:      getEnvInt("MAX_VARIANTS", 32),
				logger:    logger,
			}

			port := getEnv("PORT", "8080")
			httpServer := &http.Server{
				Addr:         ":" + port,
				Handler:      srv.routes(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			errc := make(chan error, 1)
			go func() {
				logger.Info("starting server", "port", port)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()

			select {
			case <-shutdown:
			case err := <-errc:
				return err
			}
			logger.Info("shutting down server")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Error("server shutdown error", "error", err)
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/augment", s.handleAugment)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealth)
	return mux
}

func (s *Server) handleAugment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.RateLimited.Inc()
		}
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}
	if s.metrics != nil {
		s.metrics.Requests.Inc()
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	var req augmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.N == 0 {
		req.N = 1
	}
	if req.N < 0 || req.N > s.maxN {
		http.Error(w, "n out of range", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	out := augment.GenerateMany(r.Context(), s.generator, req.Text, req.N)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(augmentResponse{Augmented: out}); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
