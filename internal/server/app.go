// Package server wires the PCP board together: it opens PostgreSQL, runs
// migrations, seeds the admin account, starts the token sweeper and serves
// the HTTP API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pcpboard/internal/bridge"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/server/archive"
	"github.com/dmitrijs2005/pcpboard/internal/server/config"
	"github.com/dmitrijs2005/pcpboard/internal/server/httpapi"
	"github.com/dmitrijs2005/pcpboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pcpboard/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	tokenService *services.TokenService
	userService  *services.UserService
	planService  *services.PlanService
	bridges      *bridge.Registry
}

// openDB is a seam for tests.
var openDB = repomanager.OpenPostgres

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	ts := services.NewTokenService(db, rm, logger, c.TokenTTL)
	us := services.NewUserService(db, rm, ts, logger)
	ps := services.NewPlanService(db, rm, logger)

	if c.S3Bucket != "" {
		ps.SetArchiver(archive.NewS3Archiver(c, logger))
	}

	created, err := us.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("admin seed failed: %w", err)
	}
	if created {
		logger.Info(ctx, "seeded admin account", "username", c.AdminUsername)
	}

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		tokenService: ts,
		userService:  us,
		planService:  ps,
		bridges:      bridge.NewRegistry(),
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
	s := httpapi.NewServer(httpapi.Options{
		Address:            app.config.EndpointAddrHTTP,
		PullTimeout:        app.config.PullTimeout,
		LoginRatePerMinute: app.config.LoginRatePerMinute,
		LoginBurst:         app.config.LoginBurst,
	}, app.logger, app.userService, app.planService, app.bridges)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.tokenService.RunSweeper(ctx, app.config.TokenSweepInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
