package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Options configures the routes built by [NewRouter].
type Options struct {
	Config   shared.ServerConfig
	Importer Importer
	Version  string
	Logger   *log.Logger
}

// NewRouter registers every endpoint of the service:
//
//	GET  /health               liveness
//	GET  /version              build version
//	GET  /check-auth           bearer token check
//	POST /api/v1/import-data   import an export (bearer, rate limited)
//	GET  /metrics              Prometheus exposition
func NewRouter(opts Options) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger), Recoverer(logger))

	auth := BearerAuth(opts.Config.APIKey)

	router.Handle(http.MethodGet, "/health", HealthHandler())
	router.Handle(http.MethodGet, "/version", VersionHandler(opts.Version))
	router.Handle(http.MethodGet, "/check-auth", CheckAuthHandler(), auth)
	router.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle(
		http.MethodPost,
		ImportPath,
		NewImportHandler(opts.Importer, opts.Config.MaxUploadBytes(), logger),
		auth,
		RateLimit(opts.Config.RateLimitRequests, opts.Config.RateLimitWindow()),
	)
	return router
}

// NewHTTPServer creates an [http.Server] listening on the configured address.
func NewHTTPServer(cfg shared.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Serve runs srv until ctx is canceled, then shuts it down gracefully.
// Returns nil on graceful shutdown; http.ErrServerClosed is expected and not reported.
func Serve(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "timeout", shutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
