package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/client"
	"github.com/llehouerou/onair/internal/server"
)

func newStationsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "stations",
		Aliases: []string{"ls"},
		Short:   "List stations, favorites first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				stations, err := c.Stations(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return writeJSON(out, stations)
				}
				if len(stations) == 0 {
					fmt.Fprintln(out, "No stations configured")
					return nil
				}
				fmt.Fprintln(out, renderStations(stations))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStations(stations []server.StationResponse) string {
	rows := make([][]string, 0, len(stations))
	for _, st := range stations {
		var marker, fav string
		if st.Current {
			marker = "▶"
		}
		if st.Favorite {
			fav = "★"
		}
		rows = append(rows, []string{marker, st.Name, st.Title, strconv.Itoa(len(st.Streams)), fav})
	}
	return renderTable(
		[]string{"", "Name", "Title", "Streams", "Fav"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newLikeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "like <station>",
		Short: "Add a station to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				if err := c.Like(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", args[0])
				return nil
			})
		},
	}
}

func newDislikeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dislike <station>",
		Short: "Remove a station from favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				if err := c.Dislike(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", args[0])
				return nil
			})
		},
	}
}
