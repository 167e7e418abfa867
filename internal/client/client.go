// Package client talks to a running onair daemon over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/errmsg"
	"github.com/llehouerou/onair/internal/server"
)

const requestTimeout = 15 * time.Second

// ErrNotRunning is returned when no daemon answers on the configured address.
var ErrNotRunning = errors.New("daemon is not running")

// CommandError is a command the daemon rejected.
type CommandError struct {
	Kind    command.Kind
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Busy reports whether the daemon was processing another command.
func (e *CommandError) Busy() bool {
	return e.Code == http.StatusConflict
}

// Client is an API client.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the daemon listening on addr (host:port).
func New(addr string) (*Client, error) {
	base, err := url.Parse("http://" + strings.TrimPrefix(addr, "http://"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errmsg.OpConnect, err)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Command runs kind with an optional payload.
func (c *Client) Command(ctx context.Context, kind command.Kind, data any) (*server.CommandResponse, error) {
	body, err := json.Marshal(server.CommandRequest{Data: data})
	if err != nil {
		return nil, err
	}
	var resp server.CommandResponse
	code, err := c.do(ctx, http.MethodPost, "/api/commands/"+url.PathEscape(string(kind)), body, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return &resp, &CommandError{Kind: kind, Code: code, Message: resp.Error}
	}
	return &resp, nil
}

// Status fetches the player status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var resp server.StatusResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Title fetches the display title.
func (c *Client) Title(ctx context.Context) (*coordinator.Title, error) {
	var resp coordinator.Title
	if _, err := c.do(ctx, http.MethodGet, "/api/title", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stations lists the catalog, favorites first.
func (c *Client) Stations(ctx context.Context) ([]server.StationResponse, error) {
	var resp []server.StationResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/stations", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Like marks a station as favorite.
func (c *Client) Like(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/stations/"+url.PathEscape(name)+"/favorite", nil, nil)
	return err
}

// Dislike removes a station from favorites.
func (c *Client) Dislike(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/stations/"+url.PathEscape(name)+"/favorite", nil, nil)
	return err
}

// AudioData fetches the current spectrum bytes.
func (c *Client) AudioData(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/audiodata", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapDialError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Watch streams events to fn until ctx is done or the connection drops.
func (c *Client) Watch(ctx context.Context, fn func(server.Event)) error {
	u := *c.base
	u.Scheme = "ws"
	u.Path = "/api/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return wrapDialError(err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev server.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ctx.Err()
			}
			return err
		}
		fn(ev)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	u := c.base.JoinPath(path)
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends a request and decodes a JSON answer into out. Command responses
// carry their own error field and are decoded regardless of status code.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, wrapDialError(err)
	}
	defer resp.Body.Close()

	isCommand := strings.HasPrefix(path, "/api/commands/")
	if resp.StatusCode >= http.StatusBadRequest && !isCommand {
		return resp.StatusCode, decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func decodeError(resp *http.Response) error {
	var e server.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return errors.New(e.Error)
}

func wrapDialError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%s: %w; start it with `onair serve`", errmsg.OpConnect, ErrNotRunning)
	}
	return fmt.Errorf("%s: %w", errmsg.OpConnect, err)
}
