// config.go defines the fleetclaw configuration structures and loader.
package copilot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all copilot configuration.
type Config struct {
	// Name is the assistant name shown in responses.
	Name string `yaml:"name"`

	// Model is the backend model to use.
	Model string `yaml:"model"`

	// Instructions are appended to the built-in system prompt.
	Instructions string `yaml:"instructions"`

	// API configures the backend endpoint.
	API APIConfig `yaml:"api"`

	// Agent configures the turn loop.
	Agent AgentConfig `yaml:"agent"`

	// Fleet lists the managed bot identities.
	Fleet []BotConfig `yaml:"fleet"`

	// Chain configures the EVM RPC endpoint.
	Chain ChainConfig `yaml:"chain"`

	// Exchange configures the trading venue.
	Exchange ExchangeConfig `yaml:"exchange"`

	// Scheduler configures periodic balance refresh.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Database configures local storage (audit log).
	Database DatabaseConfig `yaml:"database"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the LLM backend.
type APIConfig struct {
	// Key is the API key. Prefer the OS keyring over this field.
	Key string `yaml:"key"`

	// MaxTokens caps backend output tokens (default 4096).
	MaxTokens int `yaml:"max_tokens"`
}

// AgentConfig configures the turn loop parameters.
type AgentConfig struct {
	// TurnCeiling bounds consecutive iterations without a human-approved
	// mutation (default 10).
	TurnCeiling int `yaml:"turn_ceiling"`

	// ToolTimeoutSeconds is the per-tool execution timeout (default 120).
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`

	// FanOutWorkers caps concurrent identity operations (default 5).
	FanOutWorkers int `yaml:"fan_out_workers"`
}

// BotConfig declares one managed bot identity.
type BotConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// ChainConfig configures the EVM client.
type ChainConfig struct {
	RPCURL string `yaml:"rpc_url"`

	// Treasury is the funding wallet; fund_bots draws from it.
	Treasury string `yaml:"treasury"`
}

// ExchangeConfig configures the trading venue client.
type ExchangeConfig struct {
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the env var holding the venue API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// SchedulerConfig configures the balance refresh schedule.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// RefreshCron is a cron expression (default "@every 5m").
	RefreshCron string `yaml:"refresh_cron"`
}

// DatabaseConfig configures local SQLite storage.
type DatabaseConfig struct {
	// Path is the audit database file (default ~/.fleetclaw/audit.db).
	Path string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `yaml:"level"`
}

// DefaultConfigPath is the conventional config location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "fleetclaw.yaml"
	}
	return filepath.Join(home, ".fleetclaw", "config.yaml")
}

// LoadConfig reads the yaml config, loads .env, and applies defaults.
// A missing file yields the defaults, not an error.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh install: defaults only.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "Fleetclaw"
	}
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5"
	}
	if c.API.MaxTokens <= 0 {
		c.API.MaxTokens = 4096
	}
	if c.Agent.TurnCeiling <= 0 {
		c.Agent.TurnCeiling = DefaultTurnCeiling
	}
	if c.Agent.ToolTimeoutSeconds <= 0 {
		c.Agent.ToolTimeoutSeconds = 120
	}
	if c.Agent.FanOutWorkers <= 0 {
		c.Agent.FanOutWorkers = DefaultFanOutWorkers
	}
	if c.Scheduler.RefreshCron == "" {
		c.Scheduler.RefreshCron = "@every 5m"
	}
	if c.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Database.Path = filepath.Join(home, ".fleetclaw", "audit.db")
		} else {
			c.Database.Path = "audit.db"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
