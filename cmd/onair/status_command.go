package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/client"
	"github.com/llehouerou/onair/internal/coordinator"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/server"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what is playing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), status)
				}
				renderStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(w io.Writer, st *server.StatusResponse) {
	s := newStyles(w)

	heading := st.StationTitle
	if heading == "" {
		heading = "No station selected"
	}
	fmt.Fprintf(w, "%s %s  %s\n", s.indicator(indicatorFor(st.Status)), s.render(s.bold, heading), st.Status)

	var lines []string
	if st.Song != "" {
		lines = append(lines, s.field("Song", truncateSong(st.Song)))
	}
	if st.Stream != "" {
		lines = append(lines, s.field("Stream", fmt.Sprintf("%s %s", st.Stream, s.render(s.dim, st.URL))))
	}
	lines = append(lines, s.field("Volume", fmt.Sprintf("%d%%", st.Volume)))
	if st.Since != nil {
		lines = append(lines, s.field("Since", humanize.Time(*st.Since)))
	}
	if st.Attempts > 0 {
		lines = append(lines, s.field("Retries", fmt.Sprintf("%d failed", st.Attempts)))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func indicatorFor(status playback.Status) coordinator.Indicator {
	switch status {
	case playback.StatusBuffering:
		return coordinator.IndicatorLoading
	case playback.StatusPlaying:
		return coordinator.IndicatorPlaying
	case playback.StatusError:
		return coordinator.IndicatorError
	default:
		return coordinator.IndicatorStopped
	}
}
