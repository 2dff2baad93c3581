package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/iconidentify/groupgrab/internal/remote"
)

func newDriveTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drive-token",
		Short: "Authorize Google Drive access and save the OAuth token",
		Long: `drive-token prints a consent URL for the configured OAuth client, reads
the authorization code back and writes the token to the configured token path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			oauthCfg, err := remote.LoadOAuthConfig(cfg.Remote.DriveCredentialsPath)
			if err != nil {
				return err
			}

			state := uuid.NewString()
			authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "Open this URL in a browser and approve access:\n\n  %s\n\n", authURL)
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprint(out, "Authorization code: ")
			}

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			code = strings.TrimSpace(code)
			if code == "" {
				if err != nil {
					return fmt.Errorf("read authorization code: %w", err)
				}
				return fmt.Errorf("authorization code is empty")
			}

			tok, err := oauthCfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("exchange authorization code: %w", err)
			}
			if err := remote.SaveToken(cfg.Remote.DriveTokenPath, tok); err != nil {
				return err
			}

			fmt.Fprintf(out, "Token saved to %s\n", cfg.Remote.DriveTokenPath)
			return nil
		},
	}
}
