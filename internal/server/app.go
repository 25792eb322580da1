// Package server initializes and runs the application: configuration,
// logging, database with migrations, session storage, the domain services
// and the HTTP server, with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/fastkeeper/internal/logging"
	"github.com/dmitrijs2005/fastkeeper/internal/server/avatars"
	"github.com/dmitrijs2005/fastkeeper/internal/server/cache"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fastkeeper/internal/server/services"
	"github.com/dmitrijs2005/fastkeeper/internal/server/web"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	cache   *cache.RedisStorage
	httpSrv *web.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, false)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	avatarStore, err := avatars.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	var sessionStorage fiber.Storage
	var redisStorage *cache.RedisStorage
	if cfg.RedisAddr != "" {
		redisStorage = cache.NewRedisStorage(cfg.RedisAddr)
		if err := redisStorage.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		sessionStorage = redisStorage
	}

	us := services.NewUserService(db, rm, cfg)
	fs := services.NewFastService(db, rm, cfg)
	ps := services.NewProfileService(db, rm, avatarStore)

	httpSrv := web.NewServer(cfg, logger, us, fs, ps, sessionStorage)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		cache:   redisStorage,
		httpSrv: httpSrv,
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpSrv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

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

	wg.Wait()

	app.close(ctx)
}

func (app *App) close(ctx context.Context) {
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error(ctx, "Error closing redis client", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "Error closing database", "error", err)
	}
}
