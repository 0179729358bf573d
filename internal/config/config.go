package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all dialbox configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Dialpad  DialpadConfig  `toml:"dialpad"`
	Hooks    HooksConfig    `toml:"hooks"`
	Telegram TelegramConfig `toml:"telegram"`
}

// ServerConfig holds webhook server settings.
type ServerConfig struct {
	Listen        string `toml:"listen"`
	WebhookSecret string `toml:"webhook_secret"`
}

// StorageConfig selects the message store backend.
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// DialpadConfig holds Dialpad API access and line naming.
// LineNames maps receiving-line numbers to friendly display names.
type DialpadConfig struct {
	APIKey    string            `toml:"api_key"`
	LineNames map[string]string `toml:"line_names"`
}

// HooksConfig configures forwarding of inbound SMS to the agent gateway.
type HooksConfig struct {
	GatewayURL string `toml:"gateway_url"`
	Path       string `toml:"path"`
	Token      string `toml:"token"`
	Name       string `toml:"name"`
	Channel    string `toml:"channel"`
	To         string `toml:"to"`
	AgentID    string `toml:"agent_id"`
}

// TelegramConfig configures missed-call and voicemail alerts.
type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:8788",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Hooks: HooksConfig{
			GatewayURL: "http://127.0.0.1:8787",
			Path:       "/hooks/agent",
		},
	}
}

// Load reads config from path, then applies DIALBOX_* environment overrides.
// If path is empty or the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv lets deployments keep secrets out of the config file.
func (c *Config) applyEnv() {
	setEnv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setEnv(&c.Server.Listen, "DIALBOX_LISTEN")
	setEnv(&c.Server.WebhookSecret, "DIALBOX_WEBHOOK_SECRET")
	setEnv(&c.Storage.Driver, "DIALBOX_STORAGE_DRIVER")
	setEnv(&c.Storage.Path, "DIALBOX_STORAGE_PATH")
	setEnv(&c.Dialpad.APIKey, "DIALBOX_DIALPAD_API_KEY")
	setEnv(&c.Hooks.GatewayURL, "DIALBOX_HOOKS_GATEWAY_URL")
	setEnv(&c.Hooks.Token, "DIALBOX_HOOKS_TOKEN")
	setEnv(&c.Telegram.BotToken, "DIALBOX_TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("DIALBOX_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// StoragePath returns the configured store path, defaulting to a file in the
// data directory named for the driver.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == "jsonfile" {
		return filepath.Join(DataDir(), "mailbox.json")
	}
	return filepath.Join(DataDir(), "messages.db")
}

// ConfigDir returns the dialbox config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dialbox")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dialbox")
}

// DataDir returns the dialbox data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dialbox")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "dialbox")
}
