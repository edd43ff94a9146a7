// keyring.go provides secure credential storage using the operating
// system's native keyring (Linux: Secret Service/GNOME Keyring, macOS:
// Keychain, Windows: Credential Manager).
//
// Priority for resolving secrets:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (ANTHROPIC_API_KEY, FLEETCLAW_*)
//  3. .env file (loaded by godotenv at startup)
//  4. config.yaml value (least secure, plaintext on disk)
package copilot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "fleetclaw"

	// keyringAPIKey is the key name for the backend API key.
	keyringAPIKey = "api_key"

	// walletKeyPrefix prefixes per-bot wallet private keys.
	walletKeyPrefix = "wallet:"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// StoreWalletKey saves a bot's wallet private key to the keyring.
func StoreWalletKey(bot, privateKeyHex string) error {
	return StoreKeyring(walletKeyPrefix+bot, privateKeyHex)
}

// WalletKey retrieves a bot's wallet private key.
func WalletKey(bot string) (string, error) {
	key := GetKeyring(walletKeyPrefix + bot)
	if key == "" {
		return "", fmt.Errorf("no wallet key stored for bot %q", bot)
	}
	return key, nil
}

// ResolveAPIKey resolves the backend API key through the priority chain:
// keyring → env var → config value. Updates cfg in place with the result.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) string {
	if key := GetKeyring(keyringAPIKey); key != "" {
		logger.Debug("api key resolved from keyring")
		cfg.API.Key = key
		return key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		logger.Debug("api key resolved from environment")
		cfg.API.Key = key
		return key
	}
	if cfg.API.Key != "" {
		logger.Warn("api key read from config file; prefer `fleetclaw keys set` (OS keyring)")
	}
	return cfg.API.Key
}
