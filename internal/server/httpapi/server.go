// Package httpapi exposes the PCP board over HTTP with echo: login and
// session endpoints, plan reads and admin writes, and the WebSocket bridge
// an embedded planning document attaches to.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/bridge"
	"github.com/dmitrijs2005/pcpboard/internal/logging"
	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/dmitrijs2005/pcpboard/internal/server/models"
	"github.com/dmitrijs2005/pcpboard/internal/server/services"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 5 * time.Second
	bodyLimit       = "10M"
)

// UserService is the subset of services.UserService the API uses.
type UserService interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// PlanService is the subset of services.PlanService the API uses. It also
// persists bridge saves.
type PlanService interface {
	GetState(ctx context.Context, weekKey string) (json.RawMessage, error)
	SaveState(ctx context.Context, weekKey string, data json.RawMessage) error
	AllStates(ctx context.Context) ([]plan.WeekData, error)
	GetComments(ctx context.Context, weekKey string) (json.RawMessage, error)
	GetParams(ctx context.Context) (json.RawMessage, error)
	GetCoverage(ctx context.Context) (json.RawMessage, error)
	SaveCoverage(ctx context.Context, data json.RawMessage) error
	GetNotes(ctx context.Context, weekKey string) (string, error)
	FullState(ctx context.Context) (*plan.FullState, error)
	SaveAll(ctx context.Context, snap plan.Snapshot) error
}

type Options struct {
	Address            string
	PullTimeout        time.Duration
	LoginRatePerMinute int
	LoginBurst         int
}

type Server struct {
	echo        *echo.Echo
	address     string
	logger      logging.Logger
	users       UserService
	plans       PlanService
	bridges     *bridge.Registry
	limiter     *ipLimiter
	upgrader    websocket.Upgrader
	pullTimeout time.Duration

	// baseCtx outlives hijacked bridge connections' request contexts and is
	// cancelled on shutdown.
	baseCtx context.Context
}

func NewServer(opts Options, l logging.Logger, us UserService, ps PlanService, reg *bridge.Registry) *Server {
	s := &Server{
		echo:        echo.New(),
		address:     opts.Address,
		logger:      l.With("module", "http_server"),
		users:       us,
		plans:       ps,
		bridges:     reg,
		limiter:     newIPLimiter(opts.LoginRatePerMinute, opts.LoginBurst),
		pullTimeout: opts.PullTimeout,
		baseCtx:     context.Background(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	// forwarding headers are client-controlled; throttling keys on the peer
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(s.requestLogger)
	e.Use(s.authenticate)

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.health)

	api.POST("/auth/login", s.login, s.limitLogin)
	api.POST("/auth/logout", s.logout)
	api.GET("/auth/me", s.me, RequireAuth)

	pcp := api.Group("/pcp")
	pcp.GET("/state/:weekKey", s.getState)
	pcp.POST("/state/:weekKey", s.saveState, RequireAdmin)
	pcp.GET("/states", s.getStates)
	pcp.GET("/comments/:weekKey", s.getComments)
	pcp.GET("/params", s.getParams)
	pcp.GET("/coverage", s.getCoverage)
	pcp.POST("/coverage", s.saveCoverage, RequireAdmin)
	pcp.GET("/notes/:weekKey", s.getNotes)
	pcp.GET("/full-state", s.fullState)
	pcp.POST("/save-all", s.saveAll, RequireAdmin)

	pcp.GET("/bridge", s.bridgeAttach)
	pcp.POST("/bridge/:session/save", s.bridgeSave, RequireAdmin)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then closes bridge sessions and shuts
// the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.bridges.CloseAll()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
