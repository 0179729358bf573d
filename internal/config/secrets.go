package config

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "dialbox"

// Secret names used as keyring account identifiers.
const (
	SecretWebhook     = "webhook-secret"
	SecretDialpadAPI  = "dialpad-api-key"
	SecretHooksToken  = "hooks-token"
	SecretTelegramBot = "telegram-bot-token"
)

// SecretStore persists secrets in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service).
type SecretStore struct{}

// NewSecretStore returns a new SecretStore.
func NewSecretStore() *SecretStore {
	return &SecretStore{}
}

// Set stores a secret under name.
func (s *SecretStore) Set(name, value string) error {
	if err := keyring.Set(serviceName, name, value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", name, err)
	}
	return nil
}

// Get retrieves the secret stored under name. A missing entry returns "" with
// no error.
func (s *SecretStore) Get(name string) (string, error) {
	value, err := keyring.Get(serviceName, name)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to load %s from keyring: %w", name, err)
	}
	return value, nil
}

// Delete removes the secret stored under name.
func (s *SecretStore) Delete(name string) error {
	if err := keyring.Delete(serviceName, name); err != nil {
		return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
	}
	return nil
}

// ResolveSecrets fills any secret fields the config file and environment left
// empty from the OS keyring. Keyring errors are returned so a broken secret
// service is visible rather than silently running unauthenticated.
func (c *Config) ResolveSecrets(secrets *SecretStore) error {
	fill := func(dst *string, name string) error {
		if *dst != "" {
			return nil
		}
		value, err := secrets.Get(name)
		if err != nil {
			return err
		}
		*dst = value
		return nil
	}

	if err := fill(&c.Server.WebhookSecret, SecretWebhook); err != nil {
		return err
	}
	if err := fill(&c.Dialpad.APIKey, SecretDialpadAPI); err != nil {
		return err
	}
	if err := fill(&c.Hooks.Token, SecretHooksToken); err != nil {
		return err
	}
	return fill(&c.Telegram.BotToken, SecretTelegramBot)
}
