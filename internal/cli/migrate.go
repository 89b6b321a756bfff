package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and seed the admin account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the database runs every pending migration.
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", e.cfg.DBDriver)
		return nil
	},
}
