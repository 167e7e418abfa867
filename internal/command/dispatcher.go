package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/llehouerou/onair/internal/errmsg"
	"github.com/llehouerou/onair/internal/icy"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/station"
)

// Directory is the station lookup the dispatcher resolves names with.
type Directory interface {
	Select(ctx context.Context, name string) (*station.Station, error)
	CurrentName() string
	CurrentStream() (station.Stream, error)
	SelectStream(ctx context.Context, quality string) (string, error)
	Names(ctx context.Context) ([]string, error)
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, v int) error
}

// Result carries the answer to an immediate query.
type Result struct {
	Status    playback.Status
	Metadata  icy.Metadata
	AudioData []byte
	Volume    int
}

// Dispatcher serializes playback-affecting commands behind a single gate.
// A locked command arriving while the gate is held fails with ErrBusy.
type Dispatcher struct {
	busy atomic.Bool

	controller playback.Service
	engine     player.Interface
	directory  Directory
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.Component(l, "command")
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(controller playback.Service, engine player.Interface, dir Directory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		controller: controller,
		engine:     engine,
		directory:  dir,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Busy reports whether a locked command is in progress.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Dispatch runs cmd. Immediate commands always run; locked commands run only
// if no other locked command is in progress.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	if !cmd.Kind.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	if !cmd.Kind.Locked() {
		return d.immediate(ctx, cmd)
	}

	if !d.busy.CompareAndSwap(false, true) {
		d.logger.Debug("command rejected", "kind", cmd.Kind)
		return Result{}, ErrBusy
	}
	defer d.busy.Store(false)

	err := d.locked(ctx, cmd)
	if err != nil {
		d.logger.Warn(errmsg.FormatWith(errmsg.OpCommand, string(cmd.Kind), err))
	}
	return Result{Status: d.controller.Status()}, err
}

func (d *Dispatcher) locked(ctx context.Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s: panic: %v", errmsg.OpCommand, cmd.Kind, r)
		}
	}()

	d.logger.Debug("command", "kind", cmd.Kind, "payload", cmd.Payload)
	switch cmd.Kind {
	case KindPlay:
		name, err := cmd.stringPayload()
		if err != nil {
			return err
		}
		return d.play(ctx, name)
	case KindStop:
		d.controller.Stop()
		return nil
	case KindPlayPause:
		return d.playPause()
	case KindPrev:
		return d.step(ctx, -1)
	case KindNext:
		return d.step(ctx, 1)
	case KindStream:
		quality, err := cmd.stringPayload()
		if err != nil {
			return err
		}
		return d.stream(ctx, quality)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

// play toggles off the current station when it is already playing, and
// otherwise selects name and plays its primary stream. An empty name means
// the current station.
func (d *Dispatcher) play(ctx context.Context, name string) error {
	if name == "" {
		name = d.directory.CurrentName()
		if name == "" {
			return station.ErrNoCurrent
		}
	}
	if name == d.directory.CurrentName() && d.engine.IsPlaying() {
		d.controller.Stop()
		return nil
	}
	return d.selectAndPlay(ctx, name)
}

func (d *Dispatcher) selectAndPlay(ctx context.Context, name string) error {
	st, err := d.directory.Select(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationResolve, err)
	}
	primary, err := st.Primary()
	if err != nil {
		return fmt.Errorf("%s %s: %w", errmsg.OpStreamSelect, name, err)
	}
	d.controller.Play(primary.URL)
	return nil
}

func (d *Dispatcher) playPause() error {
	if d.engine.IsPlaying() {
		d.controller.Stop()
		return nil
	}
	stream, err := d.directory.CurrentStream()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStreamSelect, err)
	}
	d.controller.Play(stream.URL)
	return nil
}

// step selects the station delta positions away from the current one,
// wrapping at both ends. Without a current station the index is -1, so next
// yields the first station and prev the last.
func (d *Dispatcher) step(ctx context.Context, delta int) error {
	names, err := d.directory.Names(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationList, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", errmsg.OpStationList, station.ErrNotFound)
	}

	idx := -1
	current := d.directory.CurrentName()
	for i, n := range names {
		if n == current {
			idx = i
			break
		}
	}
	next := ((idx+delta)%len(names) + len(names)) % len(names)
	return d.selectAndPlay(ctx, names[next])
}

func (d *Dispatcher) stream(ctx context.Context, quality string) error {
	url, err := d.directory.SelectStream(ctx, quality)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStreamSelect, err)
	}
	d.controller.Play(url)
	return nil
}

func (d *Dispatcher) immediate(ctx context.Context, cmd Command) (Result, error) {
	switch cmd.Kind {
	case KindStatus:
		return Result{Status: d.controller.Status()}, nil
	case KindMetadata:
		return Result{Metadata: d.engine.Metadata()}, nil
	case KindAudioData:
		return Result{AudioData: d.engine.AudioData()}, nil
	case KindVolume:
		if cmd.Payload == nil {
			return Result{Volume: d.engine.Volume()}, nil
		}
		v, err := cmd.intPayload()
		if err != nil {
			return Result{}, err
		}
		return d.setVolume(ctx, v)
	case KindVolumeUp:
		return d.setVolume(ctx, stepVolume(d.engine.Volume(), 1))
	case KindVolumeDown:
		return d.setVolume(ctx, stepVolume(d.engine.Volume(), -1))
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
}

// stepVolume rounds v to the nearest VolumeStep multiple and moves it by
// notches steps. The result is not clamped.
func stepVolume(v, notches int) int {
	return ((v+VolumeStep/2)/VolumeStep + notches) * VolumeStep
}

func (d *Dispatcher) setVolume(ctx context.Context, v int) (Result, error) {
	v = max(0, min(100, v))
	d.engine.SetVolume(v)
	if err := d.directory.SetVolume(ctx, v); err != nil {
		d.logger.Warn(errmsg.Format(errmsg.OpVolumeSave, err))
		return Result{Volume: v}, fmt.Errorf("%s: %w", errmsg.OpVolumeSave, err)
	}
	return Result{Volume: v}, nil
}

// IsBusy reports whether err is a busy rejection.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
