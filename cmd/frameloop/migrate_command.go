package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"frameloop/internal/catalog"
	"frameloop/internal/logging"
	"frameloop/internal/migrate"
)

// newMigrateCommand imports the legacy JSON index directly, for setups
// where the daemon is not running yet. The daemon performs the same
// import on startup, so this is only needed to inspect the result
// before first boot.
func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Import the legacy JSON index into the catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, err := migrate.Run(cmd.Context(), cfg, store, logging.NewNop())
			if err != nil {
				return err
			}
			if imported == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to import")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d records from %s\n", imported, cfg.LegacyIndexPath())
			}
			return nil
		},
	}
}
