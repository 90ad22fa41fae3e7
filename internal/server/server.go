// Package server exposes the quiz engine over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /v1/questions[?difficulty=easy]
//	GET    /v1/questions/:id
//	POST   /v1/questions/:id/check
//	POST   /v1/evaluate
//	POST   /v1/sessions
//	GET    /v1/sessions/:id
//	GET    /v1/sessions/:id/next
//	DELETE /v1/sessions/:id
//	GET    /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/bank"
	"github.com/born-ml/einsum/internal/config"
	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/metrics"
	"github.com/born-ml/einsum/internal/quiz"
)

// Options configures a Server. Bank is required.
type Options struct {
	Bank     *bank.Bank
	Config   *config.Config       // nil: config.DefaultConfig()
	Logger   *zap.Logger          // nil: no-op logger
	Registry *prometheus.Registry // nil: a fresh registry
}

// Server is the HTTP adapter. Its handlers are safe for concurrent use.
type Server struct {
	cfg       *config.Config
	log       *zap.Logger
	evaluator *einsum.Evaluator
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	engine    *gin.Engine

	bank atomic.Pointer[bank.Bank]

	mu       sync.Mutex
	rng      *rand.Rand // seeds per-request generators and session selectors
	sessions map[string]*session
	now      func() time.Time
}

// New builds a server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Bank == nil {
		return nil, errors.New("server: no question bank")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		evaluator: cfg.Evaluator(),
		metrics:   metrics.New(reg),
		registry:  reg,
		rng:       rand.New(rand.NewSource(cfg.ResolveSeed())), //nolint:gosec // Quiz randomness, not security
		sessions:  make(map[string]*session),
		now:       time.Now,
	}
	s.SetBank(opts.Bank)
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog(), s.limitBody())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	{
		v1.POST("/evaluate", s.handleEvaluate)

		questions := v1.Group("/questions")
		{
			questions.GET("", s.handleListQuestions)
			questions.GET("/:id", s.handleGetQuestion)
			questions.POST("/:id/check", s.handleCheck)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", s.handleCreateSession)
			sessions.GET("/:id", s.handleGetSession)
			sessions.GET("/:id/next", s.handleNextQuestion)
			sessions.DELETE("/:id", s.handleDeleteSession)
		}
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Bank returns the active bank.
func (s *Server) Bank() *bank.Bank {
	return s.bank.Load()
}

// SetBank swaps the active bank. Requests in flight keep the bank they
// started with.
func (s *Server) SetBank(b *bank.Bank) {
	s.bank.Store(b)
	s.metrics.SetBankSize(b.Len())
}

// WatchBank reloads the bank at path on change until ctx is cancelled.
func (s *Server) WatchBank(ctx context.Context, path string) error {
	return bank.Watch(ctx, path,
		func(b *bank.Bank) {
			s.SetBank(b)
			s.metrics.ObserveBankReload(b.Len(), nil)
			s.log.Info("Question bank reloaded", zap.String("path", path), zap.Int("questions", b.Len()))
		},
		func(err error) {
			s.metrics.ObserveBankReload(0, err)
			s.log.Error("Question bank reload failed", zap.String("path", path), zap.Error(err))
		})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. Idle sessions are expired for as
// long as Serve runs.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		s.expireLoop(janitorCtx)
	}()
	defer func() {
		stopJanitor()
		<-janitorDone
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Serving", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("Server stopped")
	return nil
}

// runner builds a runner for one request. Runners with generated cases are
// not shareable, so each check gets its own.
func (s *Server) runner() *quiz.Runner {
	return &quiz.Runner{
		Evaluator: s.evaluator,
		Checker:   s.cfg.Checker(),
		Generator: s.cfg.NewGenerator(s.nextSeed()),
	}
}

func (s *Server) nextSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63()
}

// limitBody caps request bodies at server.max_body_bytes.
func (s *Server) limitBody() gin.HandlerFunc {
	limit := s.cfg.Server.MaxBodyBytes
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
