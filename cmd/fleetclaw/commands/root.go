// Package commands implements the fleetclaw CLI commands using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
)

// NewRootCmd creates the CLI root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleetclaw",
		Short: "Fleetclaw - trading fleet copilot",
		Long: `Fleetclaw is a conversational copilot for a fleet of trading bots.
It answers questions about the fleet and executes funding, withdrawal and
trading operations, each one gated behind an explicit confirmation.

Examples:
  fleetclaw chat "how much does each bot hold?"
  fleetclaw chat
  fleetclaw bots
  fleetclaw keys set`,
		Version: version,
	}

	rootCmd.AddCommand(
		newChatCmd(),
		newBotsCmd(),
		newKeysCmd(),
		newConfigCmd(),
		newAuditCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// loadConfig reads the config honoring the global --config flag.
func loadConfig(cmd *cobra.Command) (*copilot.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return copilot.LoadConfig(path)
}

// newLogger builds the CLI logger. --verbose forces debug level.
func newLogger(cmd *cobra.Command, cfg *copilot.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
