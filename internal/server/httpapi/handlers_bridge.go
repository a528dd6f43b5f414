package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pcpboard/internal/bridge"
	"github.com/dmitrijs2005/pcpboard/internal/server/auth"
	"github.com/labstack/echo/v4"
)

// bridgeAttach upgrades to a WebSocket and runs a bridge host for the
// embedded document on the other end. Once the document reports ready it
// is told its mode and hydrated with the stored plan. Guests and viewers
// get read-only sessions.
func (s *Server) bridgeAttach(c echo.Context) error {
	id := auth.FromContext(c.Request().Context())

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		s.logger.Debug(c.Request().Context(), "bridge upgrade failed", "error", err)
		return nil
	}

	tr := bridge.NewWSTransport(conn)
	host := bridge.NewHost(tr, bridge.Options{PullTimeout: s.pullTimeout, Logger: s.logger})
	s.bridges.Add(host)
	defer s.bridges.Remove(host.ID())
	defer tr.Close()

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- host.Run(ctx) }()

	select {
	case <-host.Ready():
	case err := <-done:
		s.logger.Debug(ctx, "bridge closed before ready", "session", host.ID(), "error", err)
		return nil
	}

	if err := s.hydrate(ctx, host, id.IsAdmin()); err != nil {
		s.logger.Warn(ctx, "bridge hydration failed", "session", host.ID(), "error", err)
		cancel()
		<-done
		return nil
	}
	s.logger.Info(ctx, "bridge attached", "session", host.ID(), "admin", id.IsAdmin())

	err = <-done
	s.logger.Info(ctx, "bridge detached", "session", host.ID(), "reason", err)
	return nil
}

func (s *Server) hydrate(ctx context.Context, host *bridge.Host, isAdmin bool) error {
	if err := host.Announce(ctx, isAdmin); err != nil {
		return err
	}
	fs, err := s.plans.FullState(ctx)
	if err != nil {
		return err
	}
	return host.Hydrate(ctx, fs)
}

// bridgeSave captures the live state of a bridge session and saves it.
func (s *Server) bridgeSave(c echo.Context) error {
	host, ok := s.bridges.Get(c.Param("session"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Message: "bridge session not found"})
	}

	err := host.Save(c.Request().Context(), s.plans)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, okBody{OK: true})
	case errors.Is(err, bridge.ErrStateCapture):
		return c.JSON(http.StatusGatewayTimeout, errorBody{Message: bridge.ErrStateCapture.Error()})
	default:
		return err
	}
}
