package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	logger *slog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "parksync",
		Short: "Multiplayer park sessions",
		Long: `parksync hosts and joins lockstep multiplayer park sessions.

A host runs the authoritative simulation and relays every player's actions
in tick order. Clients replay the same actions at the same ticks and
disconnect if their park diverges from the host's.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: PARKSYNC_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json (env: PARKSYNC_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Group registry backend: file, memory, redis (env: PARKSYNC_STORAGE)")
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Group registry directory (env: PARKSYNC_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&cfg.KeyDir, "key-dir", cfg.KeyDir, "Player key directory (env: PARKSYNC_KEY_DIR)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Chat and server log directory (env: PARKSYNC_LOG_DIR)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for storage and advertising (env: PARKSYNC_REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisNS, "redis-namespace", cfg.RedisNS, "Key prefix for this park's registry in Redis (env: PARKSYNC_REDIS_NAMESPACE)")

	// Add subcommands
	rootCmd.AddCommand(newHostCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newUsersCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
