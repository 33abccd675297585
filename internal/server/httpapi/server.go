// Package httpapi exposes the upload coordinator, the trash lifecycle and
// download authorization over HTTP with echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP server.
type Options struct {
	Address        string
	RequestTimeout time.Duration
	// SecretKey enables bearer tokens. Requests without one are still accepted.
	SecretKey string
}

type HTTPServer struct {
	address string
	echo    *echo.Echo
	logger  logging.Logger
}

func NewHTTPServer(opts Options, l logging.Logger, uploads *services.UploadService,
	trash *services.TrashService, files *services.FileService) *HTTPServer {

	logger := l.With("module", "http_server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	if opts.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: opts.RequestTimeout}))
	}

	h := &Handler{uploads: uploads, trash: trash, files: files, logger: logger}

	api := e.Group("/api")
	if opts.SecretKey != "" {
		api.Use(bearerAuth([]byte(opts.SecretKey)))
	}

	api.POST("/uploads/url", h.GetUploadURL)
	api.POST("/uploads/large/start", h.StartLargeFile)
	api.POST("/uploads/large/part-url", h.GetUploadPartURL)
	api.POST("/uploads/large/finish", h.FinishLargeFile)
	api.POST("/uploads/large/cancel", h.CancelLargeFile)

	api.DELETE("/files/:id", h.DeleteFile)
	api.GET("/files/:id/download", h.DownloadFile)
	api.DELETE("/folders/:id", h.DeleteFolder)

	api.GET("/trash", h.ListTrash)
	api.POST("/trash/:id/restore", h.RestoreItem)

	return &HTTPServer{address: opts.Address, echo: e, logger: logger}
}

// Handler returns the routed echo instance.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
