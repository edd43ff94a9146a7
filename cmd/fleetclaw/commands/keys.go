package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/copilot"
)

// newKeysCmd creates the `fleetclaw keys` command group. Secrets go to the
// OS keyring; nothing is echoed or written to disk.
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage secrets in the OS keyring",
		Long: `Stores the backend API key and per-bot wallet private keys in the
operating system keyring.

Examples:
  fleetclaw keys set
  fleetclaw keys set-wallet treasury
  fleetclaw keys set-wallet alpha
  fleetclaw keys delete`,
	}
	cmd.AddCommand(
		newKeysSetCmd(),
		newKeysDeleteCmd(),
		newKeysSetWalletCmd(),
	)
	return cmd
}

func newKeysSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the backend API key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			key, err := readSecret("API key: ")
			if err != nil {
				return err
			}
			if err := copilot.StoreKeyring("api_key", key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}
			fmt.Println("API key stored in the OS keyring.")
			return nil
		},
	}
}

func newKeysDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the backend API key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := copilot.DeleteKeyring("api_key"); err != nil {
				return fmt.Errorf("delete api key: %w", err)
			}
			fmt.Println("API key removed.")
			return nil
		},
	}
}

func newKeysSetWalletCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-wallet <bot>",
		Short: "Store a wallet private key for a bot (or \"treasury\")",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			bot := strings.TrimSpace(args[0])
			if bot == "" {
				return fmt.Errorf("bot name required")
			}
			key, err := readSecret(fmt.Sprintf("Private key for %s: ", bot))
			if err != nil {
				return err
			}
			if err := copilot.StoreWalletKey(bot, key); err != nil {
				return fmt.Errorf("store wallet key: %w", err)
			}
			fmt.Printf("Wallet key for %s stored in the OS keyring.\n", bot)
			return nil
		},
	}
}

// readSecret reads a secret without echo. Requires an interactive terminal.
func readSecret(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("secrets must be entered on an interactive terminal")
	}
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}
	return secret, nil
}
