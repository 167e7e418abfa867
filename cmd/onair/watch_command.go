package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/client"
	"github.com/llehouerou/onair/internal/server"
	"github.com/llehouerou/onair/internal/spectrum"
)

const spectrumLevels = "▁▂▃▄▅▆▇█"

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print status and song changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			out := cmd.OutOrStdout()
			s := newStyles(out)
			return ctx.withClient(func(c *client.Client) error {
				err := c.Watch(sigCtx, func(ev server.Event) {
					fmt.Fprintln(out, formatEvent(s, time.Now(), ev))
				})
				if sigCtx.Err() != nil {
					return nil
				}
				return err
			})
		},
	}
}

func formatEvent(s styles, at time.Time, ev server.Event) string {
	stamp := s.render(s.dim, at.Format("15:04:05"))
	switch ev.Type {
	case server.EventStatus:
		status := "unknown"
		if ev.Status != nil {
			status = ev.Status.String()
		}
		if ev.Title != nil {
			return fmt.Sprintf("%s %s %-9s %s", stamp, s.indicator(ev.Title.Indicator), status, ev.Title.Text)
		}
		return fmt.Sprintf("%s %-9s", stamp, status)
	case server.EventNowPlaying:
		return fmt.Sprintf("%s ♪ %s", stamp, truncateSong(ev.Song))
	case server.EventRetry:
		return fmt.Sprintf("%s %s retry %d/%d: %s", stamp, s.render(s.loading, "↻"), ev.Attempt, ev.MaxAttempts, ev.Error)
	default:
		return fmt.Sprintf("%s %s", stamp, ev.Type)
	}
}

func newSpectrumCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var once bool
	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "Show a live text spectrum of the playing stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("invalid interval %s", interval)
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			out := cmd.OutOrStdout()
			return ctx.withClient(func(c *client.Client) error {
				if once {
					data, err := c.AudioData(sigCtx)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderSpectrum(data))
					return nil
				}

				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					data, err := c.AudioData(sigCtx)
					if err != nil {
						if sigCtx.Err() != nil {
							fmt.Fprintln(out)
							return nil
						}
						return err
					}
					drawFrame(out, renderSpectrum(data))
					select {
					case <-sigCtx.Done():
						fmt.Fprintln(out)
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "Print a single frame and exit")
	return cmd
}

func drawFrame(w io.Writer, frame string) {
	fmt.Fprint(w, "\r"+frame)
}

// renderSpectrum maps each byte to one of eight bar heights.
func renderSpectrum(data []byte) string {
	levels := []rune(spectrumLevels)
	var b strings.Builder
	b.Grow(spectrum.Bins * 3)
	for _, v := range data {
		b.WriteRune(levels[int(v)*len(levels)/256])
	}
	return b.String()
}
