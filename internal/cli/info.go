package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/session"
	"github.com/mcoot/parksync/internal/transport"
)

func newInfoCmd() *cobra.Command {
	var (
		port    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "info <host>",
		Short: "Query a server's game info without joining",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			info, err := session.FetchGameInfo(ctx, transport.Dial(args[0], port), 10*time.Millisecond)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(info)
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", session.DefaultConfig().Port, "Game port")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Query timeout")

	return cmd
}
