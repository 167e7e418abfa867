package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/station"
)

func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()
	status, err := s.backend.Commands.Dispatch(ctx, command.Command{Kind: command.KindStatus})
	if err != nil {
		return err
	}
	volume, err := s.backend.Commands.Dispatch(ctx, command.Command{Kind: command.KindVolume})
	if err != nil {
		return err
	}

	resp := StatusResponse{
		Status: status.Status,
		Volume: volume.Volume,
	}
	if s.backend.Retries != nil {
		resp.Attempts = s.backend.Retries.Attempts()
	}
	if st, ok := s.backend.Stations.Current(); ok {
		resp.Station = st.Name
		resp.StationTitle = st.DisplayName()
		if stream, err := s.backend.Stations.CurrentStream(); err == nil {
			resp.Stream = stream.Name
			resp.URL = stream.URL
		}
	}
	if s.backend.Titles != nil {
		t := s.backend.Titles.Title()
		resp.Title = t.Text
		resp.Song = t.Song
	}
	if s.backend.Sessions != nil && status.Status.IsActive() {
		if sess := s.backend.Sessions.Session(); !sess.StartedAt.IsZero() {
			since := sess.StartedAt
			resp.Since = &since
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMetadata(c echo.Context) error {
	res, err := s.backend.Commands.Dispatch(c.Request().Context(), command.Command{Kind: command.KindMetadata})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.Metadata)
}

func (s *Server) handleAudioData(c echo.Context) error {
	res, err := s.backend.Commands.Dispatch(c.Request().Context(), command.Command{Kind: command.KindAudioData})
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/octet-stream", res.AudioData)
}

func (s *Server) handleTitle(c echo.Context) error {
	if s.backend.Titles == nil {
		return echo.NewHTTPError(http.StatusNotFound, "titles unavailable")
	}
	return c.JSON(http.StatusOK, s.backend.Titles.Title())
}

func (s *Server) handleStations(c echo.Context) error {
	stations, err := s.backend.Stations.Stations(c.Request().Context())
	if err != nil {
		return err
	}
	var current string
	if st, ok := s.backend.Stations.Current(); ok {
		current = st.Name
	}
	resp := make([]StationResponse, 0, len(stations))
	for _, st := range stations {
		streams := make([]StreamResponse, len(st.Streams))
		for i, stream := range st.Streams {
			streams[i] = StreamResponse{Name: stream.Name, URL: stream.URL}
		}
		resp = append(resp, StationResponse{
			Name:     st.Name,
			Title:    st.DisplayName(),
			URL:      st.URL,
			Image:    st.Image,
			Favorite: st.Favorite,
			Current:  st.Name == current,
			Streams:  streams,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLike(c echo.Context) error {
	return s.favorite(c, true)
}

func (s *Server) handleDislike(c echo.Context) error {
	return s.favorite(c, false)
}

func (s *Server) favorite(c echo.Context, like bool) error {
	name := c.Param("name")
	ctx := c.Request().Context()
	var err error
	if like {
		err = s.backend.Stations.Like(ctx, name)
	} else {
		err = s.backend.Stations.Dislike(ctx, name)
	}
	if errors.Is(err, station.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCommand(c echo.Context) error {
	kind := command.Kind(c.Param("kind"))
	var req CommandRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, CommandResponse{Error: "invalid request body"})
		}
	}

	res, err := s.backend.Commands.Dispatch(c.Request().Context(), command.Command{Kind: kind, Payload: req.Data})
	resp := CommandResponse{
		OK:        err == nil,
		Status:    res.Status,
		Metadata:  res.Metadata,
		AudioData: res.AudioData,
	}
	if kind == command.KindVolume || kind == command.KindVolumeUp || kind == command.KindVolumeDown {
		v := res.Volume
		resp.Volume = &v
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(commandStatusCode(err), resp)
}

func commandStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case command.IsBusy(err):
		return http.StatusConflict
	case errors.Is(err, command.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, command.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, station.ErrNotFound),
		errors.Is(err, station.ErrStreamNotFound),
		errors.Is(err, station.ErrNoCurrent),
		errors.Is(err, station.ErrNoStreams):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleEvents(c echo.Context) error {
	return s.hub.serve(c.Response(), c.Request())
}
