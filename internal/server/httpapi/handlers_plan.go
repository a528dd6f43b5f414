package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/pcpboard/internal/plan"
	"github.com/labstack/echo/v4"
)

type dataBody struct {
	Data json.RawMessage `json:"data"`
}

type notesBody struct {
	Notes string `json:"notes"`
}

type statesBody struct {
	States []plan.WeekData `json:"states"`
}

func (s *Server) getState(c echo.Context) error {
	data, err := s.plans.GetState(c.Request().Context(), c.Param("weekKey"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataBody{Data: plan.NullIfEmpty(data)})
}

func (s *Server) saveState(c echo.Context) error {
	var body dataBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	if !plan.Present(body.Data) {
		return c.JSON(http.StatusBadRequest, errorBody{Message: "data is required"})
	}
	if err := s.plans.SaveState(c.Request().Context(), c.Param("weekKey"), body.Data); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okBody{OK: true})
}

func (s *Server) getStates(c echo.Context) error {
	states, err := s.plans.AllStates(c.Request().Context())
	if err != nil {
		return err
	}
	if states == nil {
		states = []plan.WeekData{}
	}
	return c.JSON(http.StatusOK, statesBody{States: states})
}

func (s *Server) getComments(c echo.Context) error {
	data, err := s.plans.GetComments(c.Request().Context(), c.Param("weekKey"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataBody{Data: plan.NullIfEmpty(data)})
}

func (s *Server) getParams(c echo.Context) error {
	data, err := s.plans.GetParams(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataBody{Data: plan.NullIfEmpty(data)})
}

func (s *Server) getCoverage(c echo.Context) error {
	data, err := s.plans.GetCoverage(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataBody{Data: plan.NullIfEmpty(data)})
}

func (s *Server) saveCoverage(c echo.Context) error {
	var body dataBody
	if err := c.Bind(&body); err != nil {
		return err
	}
	if !plan.Present(body.Data) {
		return c.JSON(http.StatusBadRequest, errorBody{Message: "data is required"})
	}
	if err := s.plans.SaveCoverage(c.Request().Context(), body.Data); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okBody{OK: true})
}

func (s *Server) getNotes(c echo.Context) error {
	notes, err := s.plans.GetNotes(c.Request().Context(), c.Param("weekKey"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notesBody{Notes: notes})
}

func (s *Server) fullState(c echo.Context) error {
	fs, err := s.plans.FullState(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fs)
}

// saveAll persists each present bucket. Buckets that are missing or null
// are left untouched.
func (s *Server) saveAll(c echo.Context) error {
	var snap plan.Snapshot
	if err := c.Bind(&snap); err != nil {
		return err
	}
	if err := s.plans.SaveAll(c.Request().Context(), snap); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okBody{OK: true})
}
