package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/server"
	"github.com/llehouerou/onair/internal/state"
	"github.com/llehouerou/onair/internal/station"
)

type cliTestEnv struct {
	engine *player.Mock
	addr   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	ctx := context.Background()

	store, err := state.OpenPath(":memory:")
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	dir := station.NewDirectory(store)
	err = dir.Seed(ctx, []config.StationConfig{
		{Name: "groovesalad", Title: "Groove Salad", Streams: []config.StreamConfig{{Name: "high", URL: "http://a/high"}}},
		{Name: "dronezone", Title: "Drone Zone", Streams: []config.StreamConfig{{Name: "high", URL: "http://b/high"}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := player.NewMock()
	coord := coordinator.New(dir)
	hub := server.NewHub(coord, nil)
	controller := playback.New(engine, dir, playback.WithPublisher(coord), playback.WithPublisher(hub))
	t.Cleanup(func() { controller.Close() })

	srv := server.New(server.Backend{
		Commands: command.NewDispatcher(controller, engine, dir),
		Stations: dir,
		Titles:   coord,
		Sessions: engine,
		Retries:  controller,
	}, hub, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(hub.Close)

	return &cliTestEnv{engine: engine, addr: strings.TrimPrefix(ts.URL, "http://")}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--addr", e.addr))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_PlayStatusStop(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "play", "dronezone")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if strings.TrimSpace(out) != "play: buffering" {
		t.Fatalf("unexpected play output %q", out)
	}
	env.engine.Emit(player.Event{Kind: player.EventPlaying})

	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Drone Zone", "playing", "Volume:", "Since:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run(t, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if strings.TrimSpace(out) != "stop: stopped" {
		t.Fatalf("unexpected stop output %q", out)
	}
}

func TestCLI_UnknownStation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "play", "nope")
	if err == nil || !strings.Contains(err.Error(), "station not found") {
		t.Fatalf("expected station not found, got %v", err)
	}
}

func TestCLI_Volume(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "volume", "30")
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if strings.TrimSpace(out) != "Volume: 30%" {
		t.Fatalf("unexpected output %q", out)
	}
	out, err = env.run(t, "volume", "down")
	if err != nil {
		t.Fatalf("volume down: %v", err)
	}
	if strings.TrimSpace(out) != "Volume: 25%" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCLI_StationsAndFavorites(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "like", "dronezone"); err != nil {
		t.Fatalf("like: %v", err)
	}
	out, err := env.run(t, "stations")
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	drone := strings.Index(out, "dronezone")
	groove := strings.Index(out, "groovesalad")
	if drone < 0 || groove < 0 || drone > groove {
		t.Fatalf("expected favorite dronezone listed first:\n%s", out)
	}
	if !strings.Contains(out, "★") {
		t.Fatalf("expected favorite marker:\n%s", out)
	}
}

func TestParseVolumeArgs(t *testing.T) {
	tests := []struct {
		args    []string
		kind    command.Kind
		payload any
		wantErr bool
	}{
		{nil, command.KindVolume, nil, false},
		{[]string{"up"}, command.KindVolumeUp, nil, false},
		{[]string{"-"}, command.KindVolumeDown, nil, false},
		{[]string{"40"}, command.KindVolume, 40, false},
		{[]string{"40%"}, command.KindVolume, 40, false},
		{[]string{"101"}, "", nil, true},
		{[]string{"loud"}, "", nil, true},
	}
	for _, tt := range tests {
		kind, payload, err := parseVolumeArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseVolumeArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
		}
		if kind != tt.kind || payload != tt.payload {
			t.Fatalf("parseVolumeArgs(%v) = %v, %v; want %v, %v", tt.args, kind, payload, tt.kind, tt.payload)
		}
	}
}

func TestRenderSpectrum(t *testing.T) {
	got := renderSpectrum([]byte{0, 31, 32, 255})
	if got != "▁▁▂█" {
		t.Fatalf("renderSpectrum = %q", got)
	}
}

func TestFormatEventNoColor(t *testing.T) {
	s := newStyles(io.Discard)
	at := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	status := playback.StatusPlaying

	got := formatEvent(s, at, server.Event{
		Type:   server.EventStatus,
		Status: &status,
		Title:  &coordinator.Title{Text: "Groove Salad", Indicator: coordinator.IndicatorPlaying},
	})
	if got != "12:30:00 ● playing   Groove Salad" {
		t.Fatalf("status event = %q", got)
	}

	got = formatEvent(s, at, server.Event{Type: server.EventNowPlaying, Song: "A - B"})
	if got != "12:30:00 ♪ A - B" {
		t.Fatalf("now playing event = %q", got)
	}

	got = formatEvent(s, at, server.Event{Type: server.EventRetry, Attempt: 1, MaxAttempts: 3, Error: "eof"})
	if got != "12:30:00 ↻ retry 1/3: eof" {
		t.Fatalf("retry event = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
