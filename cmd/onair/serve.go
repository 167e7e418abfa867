package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/config"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/errmsg"
	"github.com/llehouerou/onair/internal/lastfm"
	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/mpris"
	"github.com/llehouerou/onair/internal/notify"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
	"github.com/llehouerou/onair/internal/server"
	"github.com/llehouerou/onair/internal/state"
	"github.com/llehouerou/onair/internal/station"
	"github.com/llehouerou/onair/internal/stderr"
)

var errAlreadyRunning = errors.New("another onair daemon is already running")

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the player daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if a := ctx.addr(); a != "" {
				cfg.Listen = a
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(sigCtx, cfg)
		},
	}
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	lockPath, err := xdg.RuntimeFile("onair/onair.lock")
	if err != nil {
		return fmt.Errorf("%s: lock path: %w", errmsg.OpInitialize, err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("%s: acquire lock: %w", errmsg.OpInitialize, err)
	}
	if !ok {
		return errAlreadyRunning
	}
	defer func() { _ = lock.Unlock() }()

	// ALSA and friends write to fd 2 directly.
	captureErr := stderr.Start()
	defer stderr.Stop()

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: stderr.Original(),
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	if captureErr != nil {
		logger.Warn("stderr capture unavailable", "error", captureErr)
	}
	go stderr.Forward(ctx, logger)

	store, err := state.Open()
	if err != nil {
		return fmt.Errorf("%s: open state: %w", errmsg.OpInitialize, err)
	}
	defer store.Close()
	store.OnSaveError(func(err error) {
		logger.Warn(errmsg.Format(errmsg.OpVolumeSave, err))
	})
	if err := store.InitVolume(cfg.Volume); err != nil {
		logger.Warn(errmsg.Format(errmsg.OpVolumeSave, err))
	}

	dir := station.NewDirectory(store, station.WithLogger(logger))
	if err := dir.Seed(ctx, cfg.Stations); err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpStationSeed, err)
	}
	volume, err := dir.Volume(ctx)
	if err != nil {
		logger.Warn(errmsg.Format(errmsg.OpVolumeLoad, err))
		volume = cfg.Volume
	}

	coord := coordinator.New(dir, coordinatorOptions(cfg, logger)...)
	defer coord.Wait()
	hub := server.NewHub(coord, logger)

	retry := cfg.GetRetryConfig()
	engine := player.NewEngine(
		player.WithLogger(logger),
		player.WithVolume(volume),
		player.WithStallTimeout(retry.StallTimeout()),
		player.WithNowPlaying(player.NowPlayingSinks{coord, hub}),
	)

	controller := playback.New(engine, dir,
		playback.WithLogger(logger),
		playback.WithRetry(retry.MaxAttempts, retry.Delay()),
		playback.WithPublisher(coord),
		playback.WithPublisher(hub),
	)
	defer controller.Close()
	go hub.ForwardRetries(ctx, controller.Subscribe())

	dispatcher := command.NewDispatcher(controller, engine, dir, command.WithLogger(logger))

	if cfg.MPRISEnabled() {
		adapter, err := mpris.New(dispatcher, dir, logger)
		switch {
		case errors.Is(err, mpris.ErrUnsupported):
			logger.Debug("media keys disabled", "reason", err)
		case err != nil:
			logger.Warn("mpris unavailable", "error", err)
		default:
			defer adapter.Close()
		}
	}

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", errmsg.OpInitialize, cfg.Listen, err)
	}
	srv := server.New(server.Backend{
		Commands: dispatcher,
		Stations: dir,
		Titles:   coord,
		Sessions: engine,
		Retries:  controller,
	}, hub, logger)

	logger.Info("onair started", "addr", l.Addr().String(), "stations", len(cfg.Stations), "volume", volume)
	err = srv.Serve(ctx, l)
	controller.Stop()
	logger.Info("onair stopped")
	return err
}

func coordinatorOptions(cfg *config.Config, logger *slog.Logger) []coordinator.Option {
	opts := []coordinator.Option{coordinator.WithLogger(logger)}

	if cfg.NotificationsEnabled() {
		n, err := notify.New()
		if err != nil {
			logger.Warn("notifications unavailable", "error", err)
		} else {
			opts = append(opts, coordinator.WithNotifier(n))
		}
	}

	if cfg.HasLastfmConfig() {
		lf := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		lf.SetSessionKey(cfg.Lastfm.SessionKey)
		opts = append(opts, coordinator.WithNowPlayingUpdater(lf))
	}
	return opts
}
