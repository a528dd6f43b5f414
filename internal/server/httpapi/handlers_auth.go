package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/pcpboard/internal/common"
	"github.com/dmitrijs2005/pcpboard/internal/server/auth"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Message: "invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Message: "username and password are required"})
	}

	res, err := s.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return c.JSON(http.StatusUnauthorized, errorBody{Message: "invalid credentials"})
		}
		return err
	}

	return c.JSON(http.StatusOK, res)
}

func (s *Server) logout(c echo.Context) error {
	id := auth.FromContext(c.Request().Context())
	if err := s.users.Logout(c.Request().Context(), id.Token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okBody{OK: true})
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.FromContext(c.Request().Context()).User)
}
