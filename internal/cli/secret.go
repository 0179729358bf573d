package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shapescale/dialbox/internal/config"
)

var secretNames = []string{
	config.SecretWebhook,
	config.SecretDialpadAPI,
	config.SecretHooksToken,
	config.SecretTelegramBot,
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets in the OS keyring",
	}
	cmd.AddCommand(newSecretSetCmd())
	cmd.AddCommand(newSecretRemoveCmd())
	return cmd
}

func validSecretName(name string) bool {
	for _, n := range secretNames {
		if n == name {
			return true
		}
	}
	return false
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret in the OS keyring",
		Long:  "Store a secret, read from stdin, under one of: " + strings.Join(secretNames, ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !validSecretName(name) {
				return fmt.Errorf("unknown secret %q (use one of: %s)", name, strings.Join(secretNames, ", "))
			}

			fmt.Fprintf(os.Stderr, "Enter value for %s: ", name)
			reader := bufio.NewReader(os.Stdin)
			value, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read secret value: %w", err)
			}
			value = strings.TrimRight(value, "\r\n")
			if value == "" {
				return fmt.Errorf("secret value must not be empty")
			}

			if err := config.NewSecretStore().Set(name, value); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "secret-set", Name: name})
			}
			fmt.Printf("Secret stored: %s\n", name)
			return nil
		},
	}
}

func newSecretRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a secret from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !validSecretName(name) {
				return fmt.Errorf("unknown secret %q (use one of: %s)", name, strings.Join(secretNames, ", "))
			}

			if err := config.NewSecretStore().Delete(name); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "secret-remove", Name: name})
			}
			fmt.Printf("Secret removed: %s\n", name)
			return nil
		},
	}
}
