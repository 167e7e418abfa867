package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/onair/internal/lastfm"
)

const authTimeout = 5 * time.Minute

func newLastfmCommand(ctx *commandContext) *cobra.Command {
	lastfmCmd := &cobra.Command{
		Use:   "lastfm",
		Short: "Last.fm integration",
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize onair to update your Last.fm now playing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Lastfm.APIKey == "" || cfg.Lastfm.APISecret == "" {
				return errors.New("set lastfm.api_key and lastfm.api_secret in the config first")
			}
			out := cmd.OutOrStdout()

			as, err := lastfm.StartAuthServer()
			if err != nil {
				return err
			}
			defer as.Shutdown()

			lf := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
			token, err := lf.GetToken()
			if err != nil {
				return err
			}
			authURL := lf.GetAuthURL(token)
			if err := lastfm.OpenBrowser(authURL); err != nil {
				fmt.Fprintln(out, "Open this URL to authorize onair:")
			} else {
				fmt.Fprintln(out, "Waiting for authorization in your browser:")
			}
			fmt.Fprintln(out, authURL)

			authorized, err := lastfm.WaitForToken(cmd.Context(), as.TokenChan(), authTimeout)
			if err != nil {
				return err
			}
			username, sessionKey, err := lf.GetSession(authorized)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Authorized as %s. Add this to your config:\n\n", username)
			fmt.Fprintf(out, "[lastfm]\nsession_key = %q\n", sessionKey)
			return nil
		},
	}

	lastfmCmd.AddCommand(loginCmd)
	return lastfmCmd
}
