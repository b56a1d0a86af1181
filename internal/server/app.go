// Package server wires the receipt store together: configuration, database,
// blob backend, order lookup, and the HTTP and gRPC health servers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/logging"
	"github.com/dmitrijs2005/receiptvault/internal/server/blobstore"
	"github.com/dmitrijs2005/receiptvault/internal/server/config"
	"github.com/dmitrijs2005/receiptvault/internal/server/httpapi"
	"github.com/dmitrijs2005/receiptvault/internal/server/orders"
	"github.com/dmitrijs2005/receiptvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/receiptvault/internal/server/services"

	gs "github.com/dmitrijs2005/receiptvault/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	readinessInterval  = 15 * time.Second
	tokenPurgeInterval = time.Hour
)

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	userService    *services.UserService
	receiptService *services.ReceiptService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	rs := services.NewReceiptService(db, rm, blobs, newOrderChecker(c, db), c, logger)

	return &App{config: c, logger: logger, db: db, userService: us, receiptService: rs}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	case config.BlobBackendFS:
		return blobstore.NewFSStore(c.BlobDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func newOrderChecker(c *config.Config, db *sql.DB) orders.Checker {
	if c.OrdersURL != "" {
		return orders.NewHTTPChecker(c.OrdersURL, c.OrdersToken)
	}
	return orders.NewPostgresChecker(db)
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.userService, app.receiptService,
		app.config.SecretKey, httpapi.Options{
			MaxUploadSize:   app.config.MaxUploadSize,
			ShutdownTimeout: app.config.ShutdownTimeout,
			Ready:           app.db.PingContext,
		})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.WatchReadiness(ctx, readinessInterval, app.db.PingContext)
	}()

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) purgeRefreshTokens(ctx context.Context) {
	t := time.NewTicker(tokenPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.userService.PurgeExpiredRefreshTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			app.logger.Debug(ctx, "refresh tokens purged", "count", n)
		}
	}
}

// Run serves until a termination signal arrives or a server fails, then
// waits for every server to stop and closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc, &wg)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeRefreshTokens(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
