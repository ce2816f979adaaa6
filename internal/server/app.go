// Package server wires the Postboard dependencies together and runs the
// HTTP and gRPC endpoints until the process is told to stop.
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

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/httpapi"
	"github.com/dmitrijs2005/postboard/internal/server/metrics"
	"github.com/dmitrijs2005/postboard/internal/server/notify"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/postboard/internal/server/grpc"
)

// notificationDrainTimeout bounds how long shutdown waits for queued
// notifications.
const notificationDrainTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	metrics     *metrics.Metrics
	dispatcher  *notify.Dispatcher
	issuer      *auth.Issuer
	userService *services.UserService
	postService *services.PostService
	fileService *services.FileService
}

// NewApp validates c and connects every backing service. Migrations run
// before it returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}

	sender, err := app.newSender(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.dispatcher = notify.NewDispatcher(sender, logger, app.metrics)

	presigner, err := storage.NewS3Presigner(ctx, storage.Options{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app.issuer = auth.NewIssuer(c.AccessTokenSecret, c.RefreshTokenSecret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	app.userService = services.NewUserService(db, rm, app.issuer, app.dispatcher, c, logger, app.metrics)
	app.postService = services.NewPostService(db, rm, app.dispatcher, logger)
	app.fileService = services.NewFileService(presigner)

	return app, nil
}

// newSender pushes notifications onto a Redis list when Redis is
// configured and only logs them otherwise.
func (app *App) newSender(ctx context.Context) (notify.Sender, error) {
	if app.config.RedisAddr == "" {
		app.logger.Warn(ctx, "Redis not configured, notifications will only be logged")
		return notify.NewLogSender(app.logger), nil
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		_ = app.redis.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return notify.NewRedisSender(app.redis, app.config.NotificationQueue), nil
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
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.postService, app.fileService, app.issuer, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.issuer)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a server fails, then drains
// pending notifications and releases connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
}

func (app *App) close(ctx context.Context) {
	if app.dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(ctx, notificationDrainTimeout)
		if !app.dispatcher.WaitContext(drainCtx) {
			app.logger.Warn(ctx, "Pending notifications dropped on shutdown")
		}
		cancel()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
