package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"adaptive-view-backend/internal/analytics"
	"adaptive-view-backend/internal/auth"
	"adaptive-view-backend/internal/model"
	"adaptive-view-backend/internal/prediction"
)

// maxBodyBytes caps a /predict body. A snapshot is a few hundred bytes.
const maxBodyBytes = 64 << 10

const shutdownTimeout = 10 * time.Second

type Options struct {
	CORSOrigins    []string
	MaxConnections int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	predictor *prediction.Predictor
	registry  *model.Registry
	auth      auth.Middleware
	stats     *analytics.Recorder
	logger    *zap.Logger
	opts      Options
}

type ServerOption func(*Server)

// WithAuth guards /predict with bearer tokens.
func WithAuth(m auth.Middleware) ServerOption {
	return func(s *Server) { s.auth = m }
}

// WithStats exposes the audit log summary on /stats.
func WithStats(rc *analytics.Recorder) ServerOption {
	return func(s *Server) { s.stats = rc }
}

func NewServer(p *prediction.Predictor, registry *model.Registry, logger *zap.Logger, opts Options, extra ...ServerOption) *Server {
	s := &Server{
		predictor: p,
		registry:  registry,
		auth:      auth.New(nil, logger),
		logger:    logger,
		opts:      opts,
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

// ----------------------
//        ROUTES
// ----------------------

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	predict := s.auth.Wrap(s.handlePredict)
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			predict(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.registry.Describe())
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	if s.stats != nil {
		mux.HandleFunc("/stats", analytics.SummaryHandler(s.stats, s.logger))
	}

	// CORS
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Platform", "X-Request-Id", "X-Session-Id", "X-App-Version", "X-Device-Locale"},
		AllowCredentials: true,
	})

	return c.Handler(mux)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	env := analytics.FromRequest(r)
	ctx := analytics.WithEnvelope(r.Context(), env)
	w.Header().Set("X-Request-Id", env.RequestID)

	res, err := s.predictor.Predict(ctx, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// ----------------------
//       LISTENER
// ----------------------

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("API server is running",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_connections", s.opts.MaxConnections))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
