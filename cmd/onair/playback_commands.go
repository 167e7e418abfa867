package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/client"
	"github.com/llehouerou/onair/internal/command"
	"github.com/llehouerou/onair/internal/server"
)

func newPlaybackCommands(ctx *commandContext) []*cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play [station]",
		Short: "Play a station, or the current one; stops it if already playing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name any
			if len(args) == 1 {
				name = args[0]
			}
			return runCommand(cmd, ctx, command.KindPlay, name)
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, command.KindStop, nil)
		},
	}

	toggleCmd := &cobra.Command{
		Use:     "toggle",
		Aliases: []string{"playpause"},
		Short:   "Toggle playback of the current station",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, command.KindPlayPause, nil)
		},
	}

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Play the next station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, command.KindNext, nil)
		},
	}

	prevCmd := &cobra.Command{
		Use:     "prev",
		Aliases: []string{"previous"},
		Short:   "Play the previous station",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, command.KindPrev, nil)
		},
	}

	streamCmd := &cobra.Command{
		Use:   "stream <name>",
		Short: "Switch the current station to another stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ctx, command.KindStream, args[0])
		},
	}

	return []*cobra.Command{playCmd, stopCmd, toggleCmd, nextCmd, prevCmd, streamCmd}
}

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volume [level|up|down]",
		Short: "Show or change the volume (0-100)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, payload, err := parseVolumeArgs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				resp, err := c.Command(cmd.Context(), kind, payload)
				if err != nil {
					return err
				}
				if resp.Volume != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Volume: %d%%\n", *resp.Volume)
				}
				return nil
			})
		},
	}
}

func parseVolumeArgs(args []string) (command.Kind, any, error) {
	if len(args) == 0 {
		return command.KindVolume, nil, nil
	}
	switch arg := strings.ToLower(strings.TrimSpace(args[0])); arg {
	case "up", "+":
		return command.KindVolumeUp, nil, nil
	case "down", "-":
		return command.KindVolumeDown, nil, nil
	default:
		v, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
		if err != nil {
			return "", nil, fmt.Errorf("invalid volume %q: expected 0-100, up or down", args[0])
		}
		if v < 0 || v > 100 {
			return "", nil, fmt.Errorf("invalid volume %d: expected 0-100", v)
		}
		return command.KindVolume, v, nil
	}
}

func runCommand(cmd *cobra.Command, ctx *commandContext, kind command.Kind, payload any) error {
	return ctx.withClient(func(c *client.Client) error {
		resp, err := c.Command(cmd.Context(), kind, payload)
		if err != nil {
			return err
		}
		printCommandResult(cmd.OutOrStdout(), kind, resp)
		return nil
	})
}

func printCommandResult(w io.Writer, kind command.Kind, resp *server.CommandResponse) {
	fmt.Fprintf(w, "%s: %s\n", kind, resp.Status)
}
