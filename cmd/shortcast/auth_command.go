package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shortcast/internal/logging"
	"shortcast/internal/publish"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Bootstrap YouTube credentials for the publisher",
		Long: "Runs the OAuth consent flow and caches the resulting token so the\n" +
			"daemon can publish without interaction.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			uploader := publish.NewUploader(cfg, logging.NewNop())
			if err := uploader.Authenticate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials cached at %s\n", cfg.YouTube.TokenFile)
			return nil
		},
	}
}
