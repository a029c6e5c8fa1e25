package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pyinsight/internal/core/config"
	"pyinsight/internal/core/ports"
	"pyinsight/internal/shared/util"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxJSONBodyBytes = 1 << 20
	limiterTTL       = 10 * time.Minute
)

// Server exposes the analysis service over HTTP.
type Server struct {
	address        string
	service        ports.AnalysisService
	defaultTopN    int
	maxUploadBytes int64
	doc            *openapi3.T
	limiter        *util.LimiterRegistry
	server         *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config, service ports.AnalysisService) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if service == nil {
		return nil, fmt.Errorf("analysis service is required")
	}
	doc, err := LoadDocument(ctx)
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:        cfg.Server.Address,
		service:        service,
		defaultTopN:    cfg.Analysis.TopN,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		doc:            doc,
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		s.limiter = util.NewLimiterRegistry(util.PerMinute(rl.RequestsPerMinute), rl.Burst, limiterTTL)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /codebase-analyzer/{$}", s.handleRoot)
	mux.Handle("POST /codebase-analyzer/file", s.withRateLimit(http.HandlerFunc(s.handleFile)))
	mux.Handle("POST /codebase-analyzer/directory", s.withRateLimit(http.HandlerFunc(s.handleDirectory)))
	mux.Handle("POST /codebase-analyzer/upload", s.withRateLimit(http.HandlerFunc(s.handleUpload)))
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return withRequestID(withMetrics(mux))
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.closeLimiter()
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	defer s.closeLimiter()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) closeLimiter() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}
