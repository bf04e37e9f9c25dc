package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/factory"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect known users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known users",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := factory.New(cfg.FactoryConfig(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			users, err := app.Storage.ListKnownUsers(cmd.Context())
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(users)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <hash>",
		Short: "Remove a known user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := factory.New(cfg.FactoryConfig(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Storage.DeleteKnownUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Forgot %s", args[0]))
			return nil
		},
	})

	return cmd
}
