package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
)

// newConfigCmd creates the `fleetclaw config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize the configuration",
	}
	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// The API key never prints, wherever it came from.
			cfg.API.Key = ""
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = copilot.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("Starter config written to %s\n", path)
			return nil
		},
	}
}

const starterConfig = `name: Fleetclaw
model: claude-sonnet-4-5

agent:
  turn_ceiling: 10
  tool_timeout_seconds: 120
  fan_out_workers: 5

fleet:
  - name: alpha
    address: "0x0000000000000000000000000000000000000000"

chain:
  rpc_url: "http://localhost:8545"
  treasury: "0x0000000000000000000000000000000000000000"

exchange:
  base_url: "http://localhost:9000"
  api_key_env: FLEETCLAW_EXCHANGE_KEY

scheduler:
  enabled: false
  refresh_cron: "@every 5m"

logging:
  level: info
`
