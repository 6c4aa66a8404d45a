// Package server serves the wikibox HTTP API: a CORS proxy to the wiki plus
// JSON endpoints for infobox extraction, charts and text selection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/wikibox/compare"
	"github.com/tsawler/wikibox/config"
	"github.com/tsawler/wikibox/wikipage"
)

const shutdownTimeout = 10 * time.Second

// Server holds the router and its dependencies.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	fetcher  wikipage.Fetcher
	comparer *compare.Comparer
	cache    *gocache.Cache
	proxy    http.Handler
	engine   *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithFetcher replaces the fetcher chosen from the configuration.
func WithFetcher(f wikipage.Fetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithComparer replaces the comparer built from cfg.LLM.
func WithComparer(c *compare.Comparer) Option {
	return func(s *Server) { s.comparer = c }
}

// New builds a server from cfg. The fetcher defaults to a headless browser
// when cfg.Fetch.Browser is set and to plain HTTP otherwise. Text comparison
// is available when cfg.LLM has an API key.
func New(cfg *config.Config, log *logrus.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:   cfg,
		log:   log,
		cache: gocache.New(cfg.Cache.TTL, cfg.Cache.Cleanup),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = NewFetcher(cfg.Fetch)
	}
	if s.comparer == nil {
		s.comparer = compare.NewFromConfig(cfg.LLM)
	}

	proxy, err := newProxy(cfg.Proxy.Target, log)
	if err != nil {
		return nil, err
	}
	s.proxy = proxy

	s.engine = s.routes()
	return s, nil
}

// NewFetcher returns the fetcher described by cfg.
func NewFetcher(cfg config.FetchConfig) wikipage.Fetcher {
	if cfg.Browser {
		f := wikipage.NewBrowserFetcher()
		f.Bin = cfg.BrowserBin
		f.UserAgent = cfg.UserAgent
		f.Timeout = cfg.Timeout
		return f
	}
	f := wikipage.NewHTTPFetcher()
	f.UserAgent = cfg.UserAgent
	f.Timeout = cfg.Timeout
	f.MaxBodySize = cfg.MaxBodySize
	return f
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	r.Use(CORS())
	r.Use(TraceID())
	r.Use(Logger(s.log))
	r.Use(ErrorHandler(s.log))

	r.Any(s.cfg.Proxy.Prefix+"/*path", s.handleProxy)

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/html", s.handleHTML)
		api.GET("/infobox", s.handleInfobox)
		api.POST("/chart", s.handleChart)
		api.POST("/selection", s.handleSelection)
		api.POST("/compare", s.handleCompare)
	}

	if dir := s.cfg.Server.StaticDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			files := http.FileServer(gin.Dir(dir, false))
			r.NoRoute(func(c *gin.Context) {
				if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
					return
				}
				files.ServeHTTP(c.Writer, c.Request)
			})
		}
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.log.Info("Server exited")
	return nil
}
