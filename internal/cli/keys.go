package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/parksync/internal/services/keys"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage player keys",
	}

	cmd.AddCommand(newKeysGenerateCmd())
	cmd.AddCommand(newKeysShowCmd())

	return cmd
}

func newKeysGenerateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate the keypair a player authenticates with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := keys.NewStore(cfg.KeyDir)
			name := args[0]

			var (
				pub string
				err error
			)
			if force {
				pub, err = store.Generate(name)
			} else {
				pub, err = store.EnsureKey(name)
			}
			if err != nil {
				return err
			}
			return printKey(cmd, name, pub)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing key")

	return cmd
}

func newKeysShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a player's public key and fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := keys.NewStore(cfg.KeyDir).PublicKey(args[0])
			if err != nil {
				return err
			}
			return printKey(cmd, args[0], pub)
		},
	}
}

func printKey(cmd *cobra.Command, name, pub string) error {
	fp, err := keys.Fingerprint(pub)
	if err != nil {
		return err
	}
	NewOutput(cfg.Output, cmd.OutOrStdout()).Print(KeyInfo{Name: name, Fingerprint: fp, PublicKey: pub})
	return nil
}
