// Package server exposes the player over a local HTTP API and a websocket
// event stream.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/station"
)

const shutdownTimeout = 5 * time.Second

// Commands runs commands.
type Commands interface {
	Dispatch(ctx context.Context, cmd command.Command) (command.Result, error)
}

// Stations is the catalog the API lists and edits.
type Stations interface {
	Stations(ctx context.Context) ([]station.Station, error)
	Current() (*station.Station, bool)
	CurrentStream() (station.Stream, error)
	Like(ctx context.Context, name string) error
	Dislike(ctx context.Context, name string) error
}

// Titles reports the display title.
type Titles interface {
	Title() coordinator.Title
}

// Sessions reports the live engine session.
type Sessions interface {
	Session() player.SessionInfo
}

// Retries reports the retry counter.
type Retries interface {
	Attempts() int
}

// Backend groups what the handlers read from.
type Backend struct {
	Commands Commands
	Stations Stations
	Titles   Titles
	Sessions Sessions
	Retries  Retries
}

// Server is the HTTP API.
type Server struct {
	backend Backend
	hub     *Hub
	echo    *echo.Echo
	logger  *slog.Logger
}

// New builds the API. The hub must be registered as a status publisher and
// now-playing sink by the caller.
func New(backend Backend, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		backend: backend,
		hub:     hub,
		logger:  logging.Component(logger, "server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/metadata", s.handleMetadata)
	api.GET("/audiodata", s.handleAudioData)
	api.GET("/title", s.handleTitle)
	api.GET("/stations", s.handleStations)
	api.POST("/stations/:name/favorite", s.handleLike)
	api.DELETE("/stations/:name/favorite", s.handleDislike)
	api.POST("/commands/:kind", s.handleCommand)
	api.GET("/events", s.handleEvents)

	s.echo = e
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.echo.Listener = l
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", l.Addr().String())
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "uri", c.Request().RequestURI, "error", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: msg})
}
