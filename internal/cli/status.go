package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/api/response"
)

func newStatusCmd() *cobra.Command {
	var (
		apiURL  string
		timeout time.Duration
	)
	client := func() *Client { return NewClient(apiURL, timeout) }

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read a running host's status API",
	}
	cmd.PersistentFlags().StringVar(&apiURL, "api", getEnvOrDefault("PARKSYNC_API", "http://127.0.0.1:11754"), "Status API URL (env: PARKSYNC_API)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", DefaultStatusTimeout, "Request timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show server info",
		RunE:  getAndPrint[response.Info](client, "/api/v1/info"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "players",
		Short: "List connected players",
		RunE:  getAndPrint[response.PlayersResponse](client, "/api/v1/players"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "groups",
		Short: "List permission groups",
		RunE:  getAndPrint[response.GroupsResponse](client, "/api/v1/groups"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "player <id>",
		Short: "Show one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p response.Player
			if err := client().Get(cmd.Context(), fmt.Sprintf("/api/v1/players/%s", args[0]), &p); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.PlayersResponse{Players: []response.Player{p}})
			return nil
		},
	})

	return cmd
}

// getAndPrint fetches path and prints the decoded T
func getAndPrint[T any](client func() *Client, path string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var result T
		if err := client().Get(cmd.Context(), path, &result); err != nil {
			return err
		}
		NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
		return nil
	}
}
