package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/factory"
	"github.com/mcoot/parksync/internal/model"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect the stored group registry",
	}

	cmd.AddCommand(newGroupsListCmd())
	cmd.AddCommand(newGroupsResetCmd())

	return cmd
}

func newGroupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := factory.New(cfg.FactoryConfig(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			groups, err := app.Storage.GetGroups(cmd.Context())
			if errors.Is(err, model.ErrGroupsNotFound) {
				groups = model.DefaultGroups()
			} else if err != nil {
				return err
			}
			groups.EnforceAdmin()

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.GroupsFromModel(groups))
			return nil
		},
	}
}

func newGroupsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the stored groups with the built-in Admin, Spectator and User",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := factory.New(cfg.FactoryConfig(logger))
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Storage.SaveGroups(cmd.Context(), model.DefaultGroups()); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("Groups reset")
			return nil
		},
	}
}
