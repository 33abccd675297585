// Package server wires the document store, the object-storage provider, the
// services and the HTTP and gRPC servers together and runs them until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/config"
	"github.com/dmitrijs2005/tenantdrive/internal/server/httpapi"
	"github.com/dmitrijs2005/tenantdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tenantdrive/internal/server/services"
	"github.com/dmitrijs2005/tenantdrive/internal/server/storage"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"

	gs "github.com/dmitrijs2005/tenantdrive/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	closeStore func() error
	sweeper    *services.Sweeper
	httpServer *httpapi.HTTPServer
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	store, closeStore, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("document store init error: %w", err)
	}

	provider, err := storage.New(ctx, c)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	rm := repomanager.NewDocRepositoryManager(store)
	clock := timex.RealClock{}
	journal := services.NewJournal(rm.Operations(), clock, logger)

	uploads := services.NewUploadService(rm, provider, journal, clock, logger)
	trash := services.NewTrashService(rm, journal, clock, logger)
	files := services.NewFileService(rm, provider, c.PresignExpiry, logger)

	hs := httpapi.NewHTTPServer(httpapi.Options{
		Address:        c.EndpointAddrHTTP,
		RequestTimeout: c.RequestTimeout,
		SecretKey:      c.SecretKey,
	}, logger, uploads, trash, files)

	return &App{
		config:     c,
		logger:     logger,
		closeStore: closeStore,
		sweeper:    services.NewSweeper(rm, provider, clock, logger, c.SweepInterval, c.UploadSessionTTL),
		httpServer: hs,
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"docstore", app.config.DocStoreType, "storage", app.config.StorageType)

	app.initSignalHandler(cancelFunc)

	if app.config.SweepInterval > 0 {
		if err := app.sweeper.Start(ctx); err != nil {
			return err
		}
		defer app.sweeper.Stop()
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Servers stopped")
	return nil
}

// Close releases the document store.
func (app *App) Close() error {
	return app.closeStore()
}
