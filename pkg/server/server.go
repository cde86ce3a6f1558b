// Package server exposes the run-once ingest endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"site-ingest/pkg/config"
	"site-ingest/pkg/pipeline"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 5 * time.Minute // a run fetches every source before replying
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Runner executes one ingest run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// ContextBuilder renders the chat system-context block.
type ContextBuilder interface {
	Build(ctx context.Context) (string, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Gatherer backs GET /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
	// Context backs GET /context; nil leaves the route out.
	Context ContextBuilder
	Logger  *zap.Logger
}

type Server struct {
	router *gin.Engine
	server *http.Server
	runner Runner
	chat   ContextBuilder
	logger *zap.Logger
}

func New(cfg *config.ServerConfig, runner Runner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())

	s := &Server{
		router: router,
		runner: runner,
		chat:   opts.Context,
		logger: logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/scrape", s.scrape)
	router.GET("/scrape", s.scrape)
	router.OPTIONS("/scrape", func(c *gin.Context) { c.Status(http.StatusOK) })
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Context != nil {
		router.GET("/context", s.chatContext)
	}

	addr := ":8080"
	if cfg != nil && cfg.ListenAddr != "" {
		addr = cfg.ListenAddr
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

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
	s.logger.Info("server: shutting down")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) scrape(c *gin.Context) {
	summary, err := s.runner.Run(c.Request.Context())
	if err != nil {
		s.logger.Error("server: run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) chatContext(c *gin.Context) {
	block, err := s.chat.Build(c.Request.Context())
	if err != nil {
		s.logger.Error("server: build context failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"context": block})
}

// corsMiddleware answers preflight requests the way the hosted function did.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("server: request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Unavailable is a Runner that always fails with err. It lets the endpoint report
// a configuration fault on every invocation instead of refusing to start.
type Unavailable struct {
	Err error
}

func (u Unavailable) Run(context.Context) (pipeline.Summary, error) {
	return pipeline.Summary{}, u.Err
}
