// Package server exposes the ingestion, export and query services over HTTP.
//
// Routes:
//
//	POST /science/files?authorName=      upload one file (multipart field "file")
//	GET  /science/files/:fileId          download the stored raw bytes
//	GET  /science/values/:fileId         stream measurements (JSON or ?format=parquet)
//	GET  /science/summaries/:fileId      summary of one file
//	GET  /science/results                filtered summaries
//	GET  /healthz                        store connectivity
//	GET  /metrics                        Prometheus metrics
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"

	"github.com/danilshahmanov/Infotecs/config"
	"github.com/danilshahmanov/Infotecs/internal/errors"
	"github.com/danilshahmanov/Infotecs/internal/logging"
	"github.com/danilshahmanov/Infotecs/internal/metrics"
	"github.com/danilshahmanov/Infotecs/internal/storage/ingestion"
	"github.com/danilshahmanov/Infotecs/internal/storage/query"
	"github.com/danilshahmanov/Infotecs/internal/storage/types"
)

var log = logging.Component("server")

// =============================================================================
// Configuration
// =============================================================================

// Config holds HTTP listener settings.
type Config struct {
	// ListenAddress is the address to listen on (e.g., "0.0.0.0:8080").
	ListenAddress string

	// MaxUploadSize caps the upload request body in bytes.
	MaxUploadSize int64

	// MultipartMemory is how much of an upload is buffered in memory before
	// spilling to a temporary file.
	MultipartMemory int64

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = config.DefaultListenAddress
	}
	if c.MaxUploadSize <= 0 {
		c.MaxUploadSize = config.DefaultMaxUploadSize
	}
	if c.MultipartMemory <= 0 {
		c.MultipartMemory = config.DefaultMultipartMemory
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = config.DefaultReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = config.DefaultShutdownTimeout
	}
}

// =============================================================================
// Dependencies
// =============================================================================

// Ingester runs one upload through the ingestion pipeline.
type Ingester interface {
	ProcessFile(ctx context.Context, req ingestion.Request) (*ingestion.Result, error)
}

// Exporter streams stored measurements.
type Exporter interface {
	CheckExists(ctx context.Context, fileID string) error
	WriteJSON(ctx context.Context, fileID string, w io.Writer) (int, error)
	WriteParquet(ctx context.Context, fileID string, w io.Writer) (int, error)
}

// Querier answers summary lookups.
type Querier interface {
	Results(ctx context.Context, f query.Filter) ([]types.FileSummary, error)
	Summary(ctx context.Context, fileID string) (*types.FileSummary, error)
}

// FileStore serves stored raw files and reports store health.
type FileStore interface {
	GetStoredFile(ctx context.Context, fileID string) (*types.StoredFile, error)
	CopyFile(ctx context.Context, fileID string, w io.Writer) (int64, error)
	Health(ctx context.Context) error
}

// Deps are the services behind the routes.
type Deps struct {
	Ingester Ingester
	Exporter Exporter
	Querier  Querier
	Files    FileStore

	// Metrics may be nil; /metrics is then not registered.
	Metrics *metrics.Collector

	// Closers are closed after the HTTP server stops, in order.
	Closers []io.Closer
}

// =============================================================================
// Server
// =============================================================================

// Server is the HTTP front end of labstatd.
type Server struct {
	cfg    Config
	deps   Deps
	engine *gin.Engine
	http   *http.Server
}

// New creates a server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	cfg.applyDefaults()

	engine := gin.New()
	engine.MaxMultipartMemory = cfg.MultipartMemory
	engine.Use(requestContext(), gin.Recovery())

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: engine,
	}
	s.routes()

	s.http = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes() {
	science := s.engine.Group("/science")
	science.POST("/files", s.handleUpload)
	science.GET("/files/:fileId", s.handleDownload)
	science.GET("/values/:fileId", s.handleValues)
	science.GET("/summaries/:fileId", s.handleSummary)
	science.GET("/results", s.handleResults)

	s.engine.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info("listening", "address", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := s.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierror.Append(result, fmt.Errorf("serve: %w", err))
	}
	return result.ErrorOrNil()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the dependencies. Every failure is reported.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down")

	var result *multierror.Error
	if err := s.http.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	for _, c := range s.deps.Closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		log.Error("shutdown finished with errors", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
