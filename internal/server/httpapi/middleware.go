package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/server/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// authenticate resolves the bearer token, if any, and stores the caller's
// identity in the request context. It never rejects a request: an invalid
// or expired token yields an anonymous identity.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		token := auth.RequestToken(r, websocket.IsWebSocketUpgrade(r))

		var id auth.Identity
		if token != "" {
			user, err := s.users.Authenticate(r.Context(), token)
			switch {
			case err == nil:
				id = auth.Identity{User: user, Token: token}
			case errors.Is(err, common.ErrorUnauthorized):
			default:
				s.logger.Warn(r.Context(), "token resolution failed", "error", err)
			}
		}

		c.SetRequest(r.WithContext(auth.WithIdentity(r.Context(), id)))
		return next(c)
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.FromContext(c.Request().Context()).IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "authentication required"})
		}
		return next(c)
	}
}

// RequireAdmin rejects everyone but admins with 403, including anonymous
// callers.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !auth.FromContext(c.Request().Context()).IsAdmin() {
			return c.JSON(http.StatusForbidden, errorBody{Message: "admin access required"})
		}
		return next(c)
	}
}

func (s *Server) limitLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, errorBody{Message: common.ErrorThrottled.Error()})
		}
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		rid := c.Request().Header.Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, rid)

		if err := next(c); err != nil {
			c.Error(err)
		}

		s.logger.Info(c.Request().Context(), "request",
			"id", rid,
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start),
		)
		return nil
	}
}
