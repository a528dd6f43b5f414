package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pcpboard/internal/bridge"
	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Message string `json:"message"`
}

type okBody struct {
	OK bool `json:"ok"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden), errors.Is(err, bridge.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders every error as {message}. Internal errors pass
// their message through to the client.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Message: msg})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "error writing error response", "error", err)
	}
}
